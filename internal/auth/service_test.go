package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/repository"
	"github.com/hitoshi/chatgate/internal/token"
)

// --- モック定義 ---

type mockVerifier struct {
	verifyFn func(ctx context.Context, rawToken string) (*model.IdentityClaim, error)
}

func (m *mockVerifier) Verify(ctx context.Context, rawToken string) (*model.IdentityClaim, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, rawToken)
	}
	return nil, nil
}

type mockUserRepo struct {
	upsertFn         func(ctx context.Context, claim *model.IdentityClaim) (*model.User, error)
	findByGoogleIDFn func(ctx context.Context, googleID string) (*model.User, error)
}

func (m *mockUserRepo) Upsert(ctx context.Context, claim *model.IdentityClaim) (*model.User, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, claim)
	}
	return &model.User{GoogleID: claim.GoogleID, Email: claim.Email, Name: claim.Name}, nil
}

func (m *mockUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if m.findByGoogleIDFn != nil {
		return m.findByGoogleIDFn(ctx, googleID)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

type mockSessionRepo struct {
	createFn             func(ctx context.Context, session *model.Session) error
	findActiveByUserIDFn func(ctx context.Context, userID string) (*model.Session, error)
	invalidateFn         func(ctx context.Context, sessionID string) (bool, error)
	invalidateByUserFn   func(ctx context.Context, userID string) (int64, error)
	sweepExpiredFn       func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error) {
	if m.findActiveByUserIDFn != nil {
		return m.findActiveByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSessionRepo) Invalidate(ctx context.Context, sessionID string) (bool, error) {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, sessionID)
	}
	return true, nil
}

func (m *mockSessionRepo) InvalidateActiveByUserID(ctx context.Context, userID string) (int64, error) {
	if m.invalidateByUserFn != nil {
		return m.invalidateByUserFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockSessionRepo) SweepExpired(ctx context.Context) (int64, error) {
	if m.sweepExpiredFn != nil {
		return m.sweepExpiredFn(ctx)
	}
	return 0, nil
}

// --- compile-time interface checks ---
var _ IdentityVerifier = (*mockVerifier)(nil)
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func validClaim() *model.IdentityClaim {
	return &model.IdentityClaim{
		GoogleID:      "u1",
		Email:         "a@b.com",
		Name:          "A",
		Picture:       "https://example.com/p.png",
		EmailVerified: true,
	}
}

// --- テスト ---

func TestLogin_ValidIDToken_IssuesTokenAndSession(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, rawToken string) (*model.IdentityClaim, error) {
			if rawToken != "google-id-token" {
				t.Errorf("rawToken = %q, want %q", rawToken, "google-id-token")
			}
			return validClaim(), nil
		},
	}

	var invalidatedUser string
	var created *model.Session
	sessions := &mockSessionRepo{
		invalidateByUserFn: func(ctx context.Context, userID string) (int64, error) {
			invalidatedUser = userID
			return 1, nil
		},
		createFn: func(ctx context.Context, session *model.Session) error {
			created = session
			return nil
		},
	}

	issuer := token.NewIssuer(testSecret, time.Hour)
	svc := NewService(verifier, issuer, &mockUserRepo{}, sessions)

	result, err := svc.Login(context.Background(), "google-id-token")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if result.User.GoogleID != "u1" {
		t.Errorf("User.GoogleID = %q, want %q", result.User.GoogleID, "u1")
	}
	if result.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want %d", result.ExpiresIn, 3600)
	}

	claims, err := issuer.Verify(result.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@b.com" || claims.Name != "A" {
		t.Errorf("token claims = %+v, want u1/a@b.com/A", claims)
	}

	// 旧セッションの無効化 → 新規セッションの記録の順で行われる
	if invalidatedUser != "u1" {
		t.Errorf("invalidated user = %q, want %q", invalidatedUser, "u1")
	}
	if created == nil {
		t.Fatal("session was not created")
	}
	if created.UserID != "u1" || !created.IsActive || created.Token != result.Token {
		t.Errorf("created session = %+v, fields mismatch", created)
	}
}

func TestLogin_RejectedIDToken_ReturnsErrIdentityRejected(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, rawToken string) (*model.IdentityClaim, error) {
			return nil, errors.New("signature mismatch")
		},
	}
	svc := NewService(verifier, token.NewIssuer(testSecret, time.Hour), &mockUserRepo{}, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), "bad-token")
	if !errors.Is(err, ErrIdentityRejected) {
		t.Errorf("error = %v, want ErrIdentityRejected", err)
	}
}

func TestLogin_UpsertFailure_ReturnsError(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(ctx context.Context, rawToken string) (*model.IdentityClaim, error) {
			return validClaim(), nil
		},
	}
	users := &mockUserRepo{
		upsertFn: func(ctx context.Context, claim *model.IdentityClaim) (*model.User, error) {
			return nil, errors.New("store unavailable")
		},
	}
	svc := NewService(verifier, token.NewIssuer(testSecret, time.Hour), users, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), "google-id-token")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrIdentityRejected) {
		t.Error("store failure must not be classified as identity rejection")
	}
}

func TestLogout_ActiveSession_Invalidates(t *testing.T) {
	sessions := &mockSessionRepo{
		findActiveByUserIDFn: func(ctx context.Context, userID string) (*model.Session, error) {
			return &model.Session{ID: "s1", UserID: userID, IsActive: true}, nil
		},
		invalidateFn: func(ctx context.Context, sessionID string) (bool, error) {
			if sessionID != "s1" {
				t.Errorf("sessionID = %q, want %q", sessionID, "s1")
			}
			return true, nil
		},
	}
	svc := NewService(&mockVerifier{}, token.NewIssuer(testSecret, time.Hour), &mockUserRepo{}, sessions)

	ok, err := svc.Logout(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if !ok {
		t.Error("ok = false, want true")
	}
}

func TestLogout_NoActiveSession_ReturnsFalse(t *testing.T) {
	svc := NewService(&mockVerifier{}, token.NewIssuer(testSecret, time.Hour), &mockUserRepo{}, &mockSessionRepo{})

	ok, err := svc.Logout(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if ok {
		t.Error("ok = true, want false")
	}
}

func TestRefresh_NotRotated_KeepsSession(t *testing.T) {
	issuer := token.NewIssuer(testSecret, time.Hour)
	tokenString, _, err := issuer.Issue("u1", "a@b.com", "A")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	createCalled := false
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createCalled = true
			return nil
		},
	}
	svc := NewService(&mockVerifier{}, issuer, &mockUserRepo{}, sessions)

	result, err := svc.Refresh(context.Background(), "u1", tokenString)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if result.Rotated {
		t.Error("Rotated = true, want false")
	}
	if result.Token != tokenString {
		t.Error("token changed although not rotated")
	}
	if createCalled {
		t.Error("session must not be recreated when token is unchanged")
	}
}

func TestRefresh_Rotated_ReplacesSession(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issueClock := func() time.Time { return base }
	issuer := token.NewIssuerWithClock(testSecret, time.Hour, issueClock)

	tokenString, _, err := issuer.Issue("u1", "a@b.com", "A")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// 残り5分の時点でリフレッシュ
	laterIssuer := token.NewIssuerWithClock(testSecret, time.Hour, func() time.Time {
		return base.Add(55 * time.Minute)
	})

	var invalidatedUser string
	var created *model.Session
	sessions := &mockSessionRepo{
		invalidateByUserFn: func(ctx context.Context, userID string) (int64, error) {
			invalidatedUser = userID
			return 1, nil
		},
		createFn: func(ctx context.Context, session *model.Session) error {
			created = session
			return nil
		},
	}
	svc := NewService(&mockVerifier{}, laterIssuer, &mockUserRepo{}, sessions)

	result, err := svc.Refresh(context.Background(), "u1", tokenString)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !result.Rotated {
		t.Fatal("Rotated = false, want true")
	}
	if invalidatedUser != "u1" {
		t.Errorf("invalidated user = %q, want %q", invalidatedUser, "u1")
	}
	if created == nil {
		t.Fatal("replacement session was not created")
	}
	if created.Token != result.Token {
		t.Error("session token does not match rotated token")
	}
}

func TestRefresh_ExpiredToken_Rejected(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := token.NewIssuerWithClock(testSecret, time.Hour, func() time.Time { return base })

	tokenString, _, err := issuer.Issue("u1", "a@b.com", "A")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	laterIssuer := token.NewIssuerWithClock(testSecret, time.Hour, func() time.Time {
		return base.Add(2 * time.Hour)
	})
	svc := NewService(&mockVerifier{}, laterIssuer, &mockUserRepo{}, &mockSessionRepo{})

	_, err = svc.Refresh(context.Background(), "u1", tokenString)
	if !errors.Is(err, token.ErrExpired) {
		t.Errorf("error = %v, want token.ErrExpired", err)
	}
}
