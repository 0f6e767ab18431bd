// Package sweeper は期限切れセッションの自動無効化ジョブを提供する。
// 有効期限を過ぎてもis_activeのまま残っているセッションを
// 定期バッチで無効化する。
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/chatgate/internal/metrics"
)

// SessionSweeper はセッションストアのスイープ操作を抽象化するインターフェース。
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// SweepJob は期限切れセッションの自動無効化ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な無効化処理を保証する。
type SweepJob struct {
	sessions SessionSweeper
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewSweepJob は新しいSweepJobを生成する。
func NewSweepJob(sessions SessionSweeper, collector metrics.MetricsCollector, logger *slog.Logger) *SweepJob {
	return &SweepJob{
		sessions: sessions,
		metrics:  collector,
		logger:   logger,
	}
}

// Run は期限切れセッションを無効化する。
// 冪等: 無効化対象がない場合でもエラーにならない。
func (j *SweepJob) Run(ctx context.Context) error {
	start := time.Now()

	sweptCount, err := j.sessions.SweepExpired(ctx)
	if err != nil {
		j.logger.Error("セッションスイープジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションスイープの実行に失敗: %w", err)
	}

	j.metrics.RecordSessionsSwept(sweptCount)

	duration := time.Since(start)
	j.logger.Info("セッションスイープジョブが完了しました",
		slog.Int64("swept_count", sweptCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunPeriodic は指定間隔でRunを繰り返し実行する。
// コンテキストのキャンセルで停止する。起動直後にも1回実行する。
func (j *SweepJob) RunPeriodic(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("初回スイープに失敗しました", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションスイープワーカーを停止します")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("定期スイープに失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}
