package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	AuthMiddleware    *middleware.AuthMiddleware
	CORSAllowedOrigin string
	GeneralLimiter    *middleware.RateLimiter
	LoginLimiter      *middleware.RateLimiter

	// サービス
	AuthService AuthServiceInterface
	ChatService ChatServiceInterface
	FormService FormServiceInterface
	StorePinger StorePinger

	// メトリクス
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → Recovery → Logging → Metrics → (ルートごとの認証ゲート・レート制限)
//
// /health と /metrics は認証ゲートの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORSミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware())
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	chatHandler := NewChatHandler(deps.ChatService, deps.Metrics)
	formHandler := NewFormHandler(deps.FormService)
	healthHandler := NewHealthHandler(deps.StorePinger)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// ログインはIP単位の専用レート制限で保護する
	r.With(middleware.NewIPRateLimitMiddleware(deps.LoginLimiter)).
		Post("/auth/google", authHandler.Login)

	// フォーム送信は任意認証（匿名でも受け付ける）
	r.With(deps.AuthMiddleware.Optional()).
		Post("/submit-form", formHandler.Submit)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: 認証ゲート → ユーザー単位レート制限
	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.Require())
		r.Use(middleware.NewUserRateLimitMiddleware(deps.GeneralLimiter))

		r.Get("/auth/verify", authHandler.Verify)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/refresh", authHandler.Refresh)

		r.Post("/chatbot", chatHandler.Send)
		r.Get("/chat/history", chatHandler.History)

		r.Get("/get-submissions", formHandler.List)
	})

	return r
}
