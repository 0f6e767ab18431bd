package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/chatgate/internal/auth"
	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn   func(ctx context.Context, rawIDToken string) (*auth.LoginResult, error)
	logoutFn  func(ctx context.Context, userID string) (bool, error)
	refreshFn func(ctx context.Context, userID string, tokenString string) (*auth.RefreshResult, error)
}

func (m *mockAuthService) Login(ctx context.Context, rawIDToken string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, rawIDToken)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, userID string) (bool, error) {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, userID)
	}
	return true, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, userID string, tokenString string) (*auth.RefreshResult, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, userID, tokenString)
	}
	return nil, errors.New("not implemented")
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testCollector() metrics.MetricsCollector {
	return metrics.NewCollector(prometheus.NewRegistry())
}

func authedContext(userID string) context.Context {
	return middleware.ContextWithCurrentUser(context.Background(), &model.CurrentUser{
		UserID: userID,
		Email:  "a@b.com",
		Name:   "A",
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- テスト ---

func TestLogin_Success_ReturnsTokenAndUser(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, rawIDToken string) (*auth.LoginResult, error) {
			if rawIDToken != "google-id-token" {
				t.Errorf("rawIDToken = %q, want google-id-token", rawIDToken)
			}
			return &auth.LoginResult{
				User:      &model.User{GoogleID: "u1", Email: "a@b.com", Name: "A"},
				Token:     "session-token",
				ExpiresIn: 3600,
			}, nil
		},
	}
	h := NewAuthHandler(service, testCollector())

	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{"token":"google-id-token"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var body loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Token != "session-token" || body.ExpiresIn != 3600 {
		t.Errorf("body = %+v, token/expires_in mismatch", body)
	}
	if body.User == nil || body.User.GoogleID != "u1" {
		t.Errorf("user = %+v, want u1", body.User)
	}
	if body.Message == "" {
		t.Error("message is empty")
	}
}

func TestLogin_MissingToken_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testCollector())

	tests := []struct {
		name string
		body string
	}{
		{"空ボディ", ``},
		{"トークンなし", `{}`},
		{"空トークン", `{"token":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Login(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if body := decodeError(t, rec); body.Code != model.ErrCodeValidation {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeValidation)
			}
		})
	}
}

func TestLogin_IdentityRejected_Returns401(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, rawIDToken string) (*auth.LoginResult, error) {
			return nil, auth.ErrIdentityRejected
		},
	}
	h := NewAuthHandler(service, testCollector())

	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{"token":"bad"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := decodeError(t, rec); body.Code != model.ErrCodeInvalidToken {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidToken)
	}
}

func TestLogin_ServiceFailure_Returns500(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, rawIDToken string) (*auth.LoginResult, error) {
			return nil, errors.New("store unavailable")
		},
	}
	h := NewAuthHandler(service, testCollector())

	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{"token":"ok"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestVerify_AuthenticatedUser_ReturnsValid(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testCollector())

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil).WithContext(authedContext("u1"))
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body verifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Valid {
		t.Error("valid = false, want true")
	}
	if body.User.ID != "u1" || body.User.Email != "a@b.com" || body.User.Name != "A" {
		t.Errorf("user = %+v, want u1/a@b.com/A", body.User)
	}
}

func TestLogout_InvalidatesSession(t *testing.T) {
	var loggedOut string
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, userID string) (bool, error) {
			loggedOut = userID
			return true, nil
		},
	}
	h := NewAuthHandler(service, testCollector())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil).WithContext(authedContext("u1"))
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if loggedOut != "u1" {
		t.Errorf("logged out user = %q, want u1", loggedOut)
	}
}

func TestLogout_NoActiveSession_StillSucceeds(t *testing.T) {
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, userID string) (bool, error) {
			return false, nil
		},
	}
	h := NewAuthHandler(service, testCollector())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil).WithContext(authedContext("u1"))
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRefresh_ReturnsRotationResult(t *testing.T) {
	service := &mockAuthService{
		refreshFn: func(ctx context.Context, userID string, tokenString string) (*auth.RefreshResult, error) {
			if tokenString != "current-token" {
				t.Errorf("tokenString = %q, want current-token", tokenString)
			}
			return &auth.RefreshResult{Token: "new-token", ExpiresIn: 3600, Rotated: true}, nil
		},
	}
	h := NewAuthHandler(service, testCollector())

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil).WithContext(authedContext("u1"))
	req.Header.Set("Authorization", "Bearer current-token")
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body refreshResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Token != "new-token" || !body.Rotated || body.ExpiresIn != 3600 {
		t.Errorf("body = %+v, rotation result mismatch", body)
	}
}
