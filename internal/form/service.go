// Package form は問い合わせフォーム送信の検証・保存・閲覧を提供する。
package form

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/repository"
	"github.com/hitoshi/chatgate/internal/security"
)

// SubmitInput は問い合わせフォームの入力内容。
// Name, Email, Messageは必須。それ以外は任意項目。
type SubmitInput struct {
	Name        string
	Email       string
	Message     string
	Company     string
	Phone       string
	ServiceType string
}

// Service は問い合わせフォームのユースケースを提供する。
type Service struct {
	submissions repository.SubmissionRepository
	sanitizer   security.ContentSanitizerService
	now         func() time.Time
}

// NewService はフォームServiceを生成する。
func NewService(submissions repository.SubmissionRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		submissions: submissions,
		sanitizer:   sanitizer,
		now:         time.Now,
	}
}

// Submit は問い合わせフォームを検証・サニタイズして保存する。
// 必須項目が欠けている場合は、欠けている項目名を含むバリデーションエラーを返す。
// userは任意認証ゲートの結果で、匿名送信の場合はnil。
func (s *Service) Submit(ctx context.Context, user *model.CurrentUser, input SubmitInput) (*model.Submission, error) {
	submission := &model.Submission{
		ID:          uuid.New().String(),
		Name:        s.sanitizer.Sanitize(input.Name),
		Email:       s.sanitizer.Sanitize(input.Email),
		Message:     s.sanitizer.Sanitize(input.Message),
		Company:     s.sanitizer.Sanitize(input.Company),
		Phone:       s.sanitizer.Sanitize(input.Phone),
		ServiceType: s.sanitizer.Sanitize(input.ServiceType),
		Timestamp:   s.now().UTC(),
	}

	// 必須項目の検証はサニタイズ後の値に対して行う
	for _, field := range []struct {
		name  string
		value string
	}{
		{"name", submission.Name},
		{"email", submission.Email},
		{"message", submission.Message},
	} {
		if field.value == "" {
			return nil, model.NewValidationError(field.name)
		}
	}

	if user != nil {
		submission.AuthenticatedUser = user.UserID
	}

	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	slog.Info("form submission received",
		slog.String("email", submission.Email),
		slog.Bool("authenticated", user != nil),
	)

	return submission, nil
}

// List は保存済みの問い合わせを古い順ですべて返す。
func (s *Service) List(ctx context.Context) ([]model.Submission, error) {
	submissions, err := s.submissions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	return submissions, nil
}
