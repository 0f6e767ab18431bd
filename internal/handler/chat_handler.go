package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/chatgate/internal/chat"
	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	Send(ctx context.Context, user *model.CurrentUser, message string) (*chat.BotReply, error)
	History(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
}

// ChatHandler はチャット関連のHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
	metrics metrics.MetricsCollector
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface, collector metrics.MetricsCollector) *ChatHandler {
	return &ChatHandler{
		service: service,
		metrics: collector,
	}
}

// chatRequest はチャットリクエストのボディ。
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse はボット応答のレスポンス。
type chatResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
}

// Send はユーザーメッセージを受け付け、ボット応答を返す。
// POST /chatbot
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("message"))
		return
	}

	reply, err := h.service.Send(r.Context(), user, req.Message)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeValidation {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
			return
		}
		slog.Error("chat message failed",
			slog.String("error", err.Error()),
			slog.String("user_id", user.UserID),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	h.metrics.RecordChatMessageSaved(model.ChatMessageTypeUser)
	h.metrics.RecordChatMessageSaved(model.ChatMessageTypeBot)

	writeJSON(w, http.StatusOK, chatResponse{
		Message:   reply.Message,
		Timestamp: reply.Timestamp,
		Type:      "bot_response",
		UserID:    reply.UserID,
	})
}

// historyResponse はチャット履歴のレスポンス。
type historyResponse struct {
	History []model.ChatMessage `json:"history"`
	Total   int                 `json:"total"`
}

// History は現在のユーザーのチャット履歴を古い順で返す。
// GET /chat/history?limit=50
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limit"))
			return
		}
		limit = parsed
	}

	history, err := h.service.History(r.Context(), user.UserID, limit)
	if err != nil {
		slog.Error("failed to load chat history",
			slog.String("error", err.Error()),
			slog.String("user_id", user.UserID),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if history == nil {
		history = []model.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		History: history,
		Total:   len(history),
	})
}
