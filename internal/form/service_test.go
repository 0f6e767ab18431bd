package form

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/repository"
	"github.com/hitoshi/chatgate/internal/security"
)

// --- モック定義 ---

type mockSubmissionRepo struct {
	created  []*model.Submission
	createFn func(ctx context.Context, submission *model.Submission) error
	listFn   func(ctx context.Context) ([]model.Submission, error)
}

func (m *mockSubmissionRepo) Create(ctx context.Context, submission *model.Submission) error {
	if m.createFn != nil {
		return m.createFn(ctx, submission)
	}
	m.created = append(m.created, submission)
	return nil
}

func (m *mockSubmissionRepo) List(ctx context.Context) ([]model.Submission, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

var _ repository.SubmissionRepository = (*mockSubmissionRepo)(nil)

func validInput() SubmitInput {
	return SubmitInput{
		Name:    "Taro",
		Email:   "taro@example.com",
		Message: "相談したいことがあります",
	}
}

// --- テスト ---

func TestSubmit_AnonymousSubmissionSaved(t *testing.T) {
	repo := &mockSubmissionRepo{}
	svc := NewService(repo, security.NewContentSanitizer())

	submission, err := svc.Submit(context.Background(), nil, validInput())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("created %d submissions, want 1", len(repo.created))
	}
	if submission.ID == "" {
		t.Error("submission ID is empty")
	}
	if submission.AuthenticatedUser != "" {
		t.Errorf("AuthenticatedUser = %q, want empty for anonymous", submission.AuthenticatedUser)
	}
	if submission.Timestamp.IsZero() {
		t.Error("timestamp was not set")
	}
}

func TestSubmit_AuthenticatedUserRecorded(t *testing.T) {
	repo := &mockSubmissionRepo{}
	svc := NewService(repo, security.NewContentSanitizer())

	user := &model.CurrentUser{UserID: "u1", Email: "a@b.com", Name: "A"}
	submission, err := svc.Submit(context.Background(), user, validInput())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submission.AuthenticatedUser != "u1" {
		t.Errorf("AuthenticatedUser = %q, want u1", submission.AuthenticatedUser)
	}
}

func TestSubmit_MissingRequiredField_NamesField(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(input *SubmitInput)
		wantField string
	}{
		{"nameが空", func(i *SubmitInput) { i.Name = "" }, "name"},
		{"emailが空", func(i *SubmitInput) { i.Email = "" }, "email"},
		{"messageが空", func(i *SubmitInput) { i.Message = "" }, "message"},
		{"nameがタグのみ", func(i *SubmitInput) { i.Name = "<script>x</script>" }, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockSubmissionRepo{}
			svc := NewService(repo, security.NewContentSanitizer())

			input := validInput()
			tt.mutate(&input)

			_, err := svc.Submit(context.Background(), nil, input)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *model.APIError", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
			if !strings.Contains(apiErr.Message, tt.wantField) {
				t.Errorf("message = %q, want to mention %q", apiErr.Message, tt.wantField)
			}
			if len(repo.created) != 0 {
				t.Error("nothing must be saved for invalid submission")
			}
		})
	}
}

func TestSubmit_SanitizesFreeText(t *testing.T) {
	repo := &mockSubmissionRepo{}
	svc := NewService(repo, security.NewContentSanitizer())

	input := validInput()
	input.Message = `<img src=x onerror=alert(1)>please contact me`

	submission, err := svc.Submit(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submission.Message != "please contact me" {
		t.Errorf("Message = %q, want sanitized text", submission.Message)
	}
}

func TestSubmit_StoreFailure_ReturnsError(t *testing.T) {
	repo := &mockSubmissionRepo{
		createFn: func(ctx context.Context, submission *model.Submission) error {
			return errors.New("store unavailable")
		},
	}
	svc := NewService(repo, security.NewContentSanitizer())

	_, err := svc.Submit(context.Background(), nil, validInput())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestList_ReturnsAllSubmissions(t *testing.T) {
	repo := &mockSubmissionRepo{
		listFn: func(ctx context.Context) ([]model.Submission, error) {
			return []model.Submission{{ID: "s1"}, {ID: "s2"}}, nil
		},
	}
	svc := NewService(repo, security.NewContentSanitizer())

	submissions, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(submissions) != 2 {
		t.Errorf("len = %d, want 2", len(submissions))
	}
}
