package handler

import (
	"context"
	"net/http"
	"time"
)

// StorePinger はデータストアへの到達確認を行うインターフェース。
type StorePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	pinger StorePinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(pinger StorePinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status           string    `json:"status"`
	MongoDBConnected bool      `json:"mongodb_connected"`
	Timestamp        time.Time `json:"timestamp"`
}

// Check はサーバーとデータストアの状態を応答する。
// データストアに到達できない場合も200を返し、statusで縮退運転を示す。
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	connected := h.pinger.Ping(r.Context()) == nil

	status := "ok"
	if !connected {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:           status,
		MongoDBConnected: connected,
		Timestamp:        time.Now().UTC(),
	})
}
