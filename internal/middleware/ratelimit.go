package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/hitoshi/chatgate/internal/model"
)

// RateLimiter はキーごとのトークンバケットを管理するレートリミッター。
// キーの抽出方法（IP、ユーザーIDなど）は呼び出し側が決める。
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter は1分あたりrequestsPerMinute件を許可するRateLimiterを生成する。
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    requestsPerMinute,
	}
}

// getLimiter はキーに対応するリミッターを取得する。存在しなければ生成する。
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Allow はキーに対するリクエストを許可するか判定する。
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// rateLimitExceededError はレート超過時の統一エラー。
func rateLimitExceededError() *model.APIError {
	return &model.APIError{
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: "too many requests",
	}
}

// NewIPRateLimitMiddleware はクライアントIP単位のレート制限ミドルウェアを返す。
// ログインのような未認証エンドポイントの保護に使用する。
func NewIPRateLimitMiddleware(rl *RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(clientIP(r)) {
				slog.Warn("rate limit exceeded",
					slog.String("key", clientIP(r)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusTooManyRequests, rateLimitExceededError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewUserRateLimitMiddleware は認証済みユーザー単位のレート制限ミドルウェアを返す。
// 認証ゲートの後段に配置する。本人情報がなければIPにフォールバックする。
func NewUserRateLimitMiddleware(rl *RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if user, ok := CurrentUserFromContext(r.Context()); ok {
				key = user.UserID
			}
			if !rl.Allow(key) {
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusTooManyRequests, rateLimitExceededError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP はリクエスト元のIPアドレスを取得する。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
