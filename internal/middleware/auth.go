// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// currentUserContextKey はリクエストコンテキストに本人情報を格納するためのキー。
var currentUserContextKey = contextKey("current_user")

// TokenVerifier はセッショントークン検証に必要なインターフェース。
// token.Issuerの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// UserFinder はユーザー存在確認に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
}

// SessionFinder はアクティブセッション検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error)
}

// AuthMiddleware は認証ゲートを提供する。
// Require（必須認証）とOptional（任意認証）は同一の検証シーケンスを共有し、
// 失敗時のポリシーのみが異なる: Requireは分類済みエラーで拒否し、
// Optionalは匿名のまま後続ハンドラーを実行する。
type AuthMiddleware struct {
	verifier TokenVerifier
	users    UserFinder
	sessions SessionFinder
	metrics  metrics.MetricsCollector
}

// NewAuthMiddleware はAuthMiddlewareを生成する。
func NewAuthMiddleware(verifier TokenVerifier, users UserFinder, sessions SessionFinder) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		users:    users,
		sessions: sessions,
	}
}

// SetMetrics はトークン検証結果のメトリクス収集を有効にする。
func (m *AuthMiddleware) SetMetrics(collector metrics.MetricsCollector) {
	m.metrics = collector
}

// recordTokenOutcome は検証結果をメトリクスに記録する。収集が無効なら何もしない。
func (m *AuthMiddleware) recordTokenOutcome(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordTokenVerification(outcome)
	}
}

// authOutcome は検証シーケンスの終端状態を表す。
type authOutcome struct {
	user   *model.CurrentUser // 成功時のみ非nil
	apiErr *model.APIError    // 失敗時のみ非nil
	status int                // 失敗時のHTTPステータス
}

// authenticate はAuthorizationヘッダーから本人情報を確立する検証シーケンス。
//
//	ヘッダー欠如 → MISSING_TOKEN
//	Bearerスキーム不正 → INVALID_TOKEN_FORMAT
//	トークン検証失敗 → INVALID_TOKEN（期限切れ/不正形式の区別はログのみ）
//	ユーザー不在 → USER_NOT_FOUND（アカウント削除後のトークン使用を遮断）
//	内部障害 → AUTH_ERROR
func (m *AuthMiddleware) authenticate(r *http.Request) authOutcome {
	header := r.Header.Get("Authorization")
	if header == "" {
		return authOutcome{apiErr: model.NewMissingTokenError(), status: http.StatusUnauthorized}
	}

	// "Bearer <token>" の厳密に1組のスペース区切りのみ受け付ける
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return authOutcome{apiErr: model.NewInvalidTokenFormatError(), status: http.StatusUnauthorized}
	}

	claims, err := m.verifier.Verify(parts[1])
	if err != nil {
		// 拒否理由の区別はログとメトリクスにのみ残す
		reason := metrics.TokenOutcomeMalformed
		if errors.Is(err, token.ErrExpired) {
			reason = metrics.TokenOutcomeExpired
		}
		m.recordTokenOutcome(reason)
		slog.Warn("session token rejected",
			slog.String("reason", reason),
			slog.String("path", r.URL.Path),
		)
		return authOutcome{apiErr: model.NewInvalidTokenError(), status: http.StatusUnauthorized}
	}
	m.recordTokenOutcome(metrics.TokenOutcomeValid)

	user, err := m.users.FindByGoogleID(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("user lookup failed during authentication",
			slog.String("error", err.Error()),
			slog.String("user_id", claims.UserID),
		)
		return authOutcome{apiErr: model.NewAuthInternalError(), status: http.StatusInternalServerError}
	}
	if user == nil {
		return authOutcome{apiErr: model.NewUserNotFoundError(), status: http.StatusUnauthorized}
	}

	current := &model.CurrentUser{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		User:   user,
	}

	// アクティブセッションがあれば添付する
	session, err := m.sessions.FindActiveByUserID(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("session lookup failed during authentication",
			slog.String("error", err.Error()),
			slog.String("user_id", claims.UserID),
		)
		return authOutcome{apiErr: model.NewAuthInternalError(), status: http.StatusInternalServerError}
	}
	current.Session = session

	return authOutcome{user: current}
}

// Require は必須認証ゲートを返す。
// 検証シーケンスのいずれかの段階で失敗したリクエストは分類済みエラーで拒否する。
func (m *AuthMiddleware) Require() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := m.authenticate(r)
			if outcome.apiErr != nil {
				WriteErrorResponse(w, outcome.status, outcome.apiErr)
				return
			}

			ctx := ContextWithCurrentUser(r.Context(), outcome.user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional は任意認証ゲートを返す。
// Requireと同一の検証シーケンスを実行するが、失敗しても拒否せず、
// 本人情報を空のまま後続ハンドラーを実行する。失敗理由は破棄せずログに残す。
func (m *AuthMiddleware) Optional() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// ヘッダーがなければ検証を試みず匿名で通す
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			outcome := m.authenticate(r)
			if outcome.apiErr != nil {
				slog.Debug("optional authentication failed, proceeding anonymous",
					slog.String("code", outcome.apiErr.Code),
					slog.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithCurrentUser(r.Context(), outcome.user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUserFromContext はリクエストコンテキストから本人情報を取得する。
// 認証ゲートを通過していない、または任意認証で匿名の場合はfalseを返す。
func CurrentUserFromContext(ctx context.Context) (*model.CurrentUser, bool) {
	user, ok := ctx.Value(currentUserContextKey).(*model.CurrentUser)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// ContextWithCurrentUser はコンテキストに本人情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithCurrentUser(ctx context.Context, user *model.CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserContextKey, user)
}
