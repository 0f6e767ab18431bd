// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(outcome string)
	RecordTokenVerification(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordChatMessageSaved(messageType string)
	RecordSessionsSwept(count int64)
}

// ログイン結果のラベル値。
const (
	LoginOutcomeSuccess  = "success"
	LoginOutcomeRejected = "rejected"
	LoginOutcomeError    = "error"
)

// トークン検証結果のラベル値。
const (
	TokenOutcomeValid     = "valid"
	TokenOutcomeExpired   = "expired"
	TokenOutcomeMalformed = "malformed"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins            *prometheus.CounterVec
	tokenVerification *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	requestLatency    prometheus.Histogram
	chatMessages      *prometheus.CounterVec
	sessionsSwept     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"outcome"}),
		tokenVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_token_verification_total",
			Help: "セッショントークン検証の結果別合計数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatgate_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_chat_messages_total",
			Help: "保存されたチャットメッセージの種別ごとの合計数",
		}, []string{"message_type"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatgate_sessions_swept_total",
			Help: "期限切れスイープで無効化されたセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.tokenVerification,
		c.httpStatus,
		c.requestLatency,
		c.chatMessages,
		c.sessionsSwept,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordTokenVerification はセッショントークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(outcome string) {
	c.tokenVerification.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordChatMessageSaved は保存されたチャットメッセージを種別ごとに記録する。
func (c *Collector) RecordChatMessageSaved(messageType string) {
	c.chatMessages.WithLabelValues(messageType).Inc()
}

// RecordSessionsSwept はスイープで無効化されたセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
