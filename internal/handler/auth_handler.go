// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/chatgate/internal/auth"
	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, rawIDToken string) (*auth.LoginResult, error)
	Logout(ctx context.Context, userID string) (bool, error)
	Refresh(ctx context.Context, userID string, tokenString string) (*auth.RefreshResult, error)
}

// AuthHandler はGoogle認証とセッション管理のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: collector,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Token string `json:"token"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Message   string      `json:"message"`
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expires_in"`
}

// Login はGoogle IDトークンを検証し、セッショントークンを発行する。
// POST /auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("token"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrIdentityRejected) {
			h.metrics.RecordLogin(metrics.LoginOutcomeRejected)
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
			return
		}
		h.metrics.RecordLogin(metrics.LoginOutcomeError)
		slog.Error("login failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.metrics.RecordLogin(metrics.LoginOutcomeSuccess)
	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "authentication successful",
		User:      result.User,
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
	})
}

// verifyResponse はトークン検証成功時のレスポンス。
type verifyResponse struct {
	Valid bool       `json:"valid"`
	User  verifyUser `json:"user"`
}

type verifyUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Verify は認証ゲートを通過したトークンの有効性を応答する。
// GET /auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Valid: true,
		User: verifyUser{
			ID:    user.UserID,
			Email: user.Email,
			Name:  user.Name,
		},
	})
}

// Logout は現在のユーザーのアクティブセッションを無効化する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return
	}

	if _, err := h.service.Logout(r.Context(), user.UserID); err != nil {
		slog.Error("logout failed",
			slog.String("error", err.Error()),
			slog.String("user_id", user.UserID),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	// アクティブセッションがない場合も成功として応答する（冪等）
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "session closed successfully",
	})
}

// refreshResponse はトークンリフレッシュのレスポンス。
type refreshResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Rotated   bool   `json:"rotated"`
}

// Refresh はセッショントークンの残存期間に応じてトークンを再発行する。
// 残存期間が十分であれば同一トークンを返す。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return
	}

	// 認証ゲートで検証済みのトークンを再利用する
	rawToken := bearerToken(r)
	if rawToken == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenFormatError())
		return
	}

	result, err := h.service.Refresh(r.Context(), user.UserID, rawToken)
	if err != nil {
		slog.Error("token refresh failed",
			slog.String("error", err.Error()),
			slog.String("user_id", user.UserID),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
		Rotated:   result.Rotated,
	})
}

// bearerToken はAuthorizationヘッダーからトークン部分を取り出す。
func bearerToken(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
