// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/chatgate/internal/auth"
	"github.com/hitoshi/chatgate/internal/chat"
	"github.com/hitoshi/chatgate/internal/config"
	"github.com/hitoshi/chatgate/internal/database"
	"github.com/hitoshi/chatgate/internal/form"
	"github.com/hitoshi/chatgate/internal/handler"
	"github.com/hitoshi/chatgate/internal/logger"
	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/repository"
	"github.com/hitoshi/chatgate/internal/security"
	"github.com/hitoshi/chatgate/internal/token"
	"github.com/hitoshi/chatgate/internal/worker/sweeper"

	"go.mongodb.org/mongo-driver/mongo"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("mongodb_uri", maskMongoURI(cfg.MongoURI)),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	default:
		return runServe(cfg)
	}
}

// mongoPinger はhandler.StorePingerをmongoクライアントに適合させる。
type mongoPinger struct {
	client *mongo.Client
}

func (p *mongoPinger) Ping(ctx context.Context) error {
	return database.Ping(ctx, p.client)
}

// runServe はAPIサーバーモードで起動する。
// データストア接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
// データストアに到達できなくてもサーバーは起動し、/healthがdegradedを報告する。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. データストア接続
	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("failed to create mongodb client: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			slog.Error("mongodb disconnect failed", slog.String("error", err.Error()))
		}
	}()

	db := client.Database(cfg.MongoDatabase)

	// 疎通できる場合のみインデックスを保証する（縮退起動を妨げない）
	if err := database.Ping(ctx, client); err != nil {
		slog.Warn("mongodb unreachable at startup, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		slog.Info("mongodb connection established")
		if err := database.EnsureIndexes(ctx, db); err != nil {
			return fmt.Errorf("failed to ensure indexes: %w", err)
		}
	}

	// 2. リポジトリの初期化
	userRepo := repository.NewMongoUserRepo(db)
	sessionRepo := repository.NewMongoSessionRepo(db)
	chatRepo := repository.NewMongoChatRepo(db)
	submissionRepo := repository.NewMongoSubmissionRepo(db)

	// 3. セキュリティ・共通サービスの初期化
	sanitizer := security.NewContentSanitizer()
	issuer := token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	verifier, err := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	if err != nil {
		return fmt.Errorf("failed to create google verifier: %w", err)
	}
	authService := auth.NewService(verifier, issuer, userRepo, sessionRepo)
	chatService := chat.NewService(chatRepo, sanitizer)
	formService := form.NewService(submissionRepo, sanitizer)

	// 5. ルーターの構築
	authGate := middleware.NewAuthMiddleware(issuer, userRepo, sessionRepo)
	authGate.SetMetrics(collector)

	deps := &handler.RouterDeps{
		AuthMiddleware:    authGate,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		GeneralLimiter:    middleware.NewRateLimiter(cfg.RateLimitGeneral),
		LoginLimiter:      middleware.NewRateLimiter(cfg.RateLimitLogin),

		AuthService: authService,
		ChatService: chatService,
		FormService: formService,
		StorePinger: &mongoPinger{client: client},

		Metrics:  collector,
		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// データストア接続を開き、セッションスイープジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. データストア接続
	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("failed to create mongodb client: %w", err)
	}
	defer func() {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelDisconnect()
		if err := client.Disconnect(disconnectCtx); err != nil {
			slog.Error("mongodb disconnect failed", slog.String("error", err.Error()))
		}
	}()

	if err := database.Ping(ctx, client); err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	slog.Info("mongodb connection established (worker)")

	db := client.Database(cfg.MongoDatabase)
	sessionRepo := repository.NewMongoSessionRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. スイープジョブの初期化
	job := sweeper.NewSweepJob(sessionRepo, collector, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

	// スイープジョブをメインgoroutineで実行（ブロッキング）
	job.RunPeriodic(ctx, cfg.SweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// サーバーの/healthエンドポイントに疎通できれば成功とする。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskMongoURI は接続URI内の資格情報をログ用にマスクする。
func maskMongoURI(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "(unparsable)"
	}
	if parsed.User != nil {
		parsed.User = url.UserPassword("***", "***")
	}
	return parsed.String()
}
