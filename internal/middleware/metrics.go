package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/chatgate/internal/metrics"
)

// NewMetricsMiddleware はリクエストごとにステータスコードとレイテンシを記録するミドルウェアを返す。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			collector.RecordHTTPStatus(recorder.status)
			collector.RecordRequestLatency(time.Since(start))
		})
	}
}
