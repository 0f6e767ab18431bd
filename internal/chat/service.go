// Package chat はチャットメッセージの保存・履歴取得・ボット応答生成を提供する。
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/repository"
	"github.com/hitoshi/chatgate/internal/security"
)

// defaultHistoryLimit は履歴取得のデフォルト件数。
const defaultHistoryLimit = 50

// Service はチャット機能のユースケースを提供する。
type Service struct {
	chats     repository.ChatRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はチャットServiceを生成する。
func NewService(chats repository.ChatRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		chats:     chats,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// BotReply はボット応答とその保存済みメタデータを表す。
type BotReply struct {
	Message   string
	Timestamp time.Time
	UserID    string
}

// Send はユーザーメッセージを保存し、ボット応答を生成・保存して返す。
// メッセージはサニタイズ後に保存される。サニタイズの結果
// 空になったメッセージはバリデーションエラーとして拒否する。
func (s *Service) Send(ctx context.Context, user *model.CurrentUser, message string) (*BotReply, error) {
	clean := s.sanitizer.Sanitize(message)
	if clean == "" {
		return nil, model.NewValidationError("message")
	}

	now := s.now().UTC()
	userMessage := &model.ChatMessage{
		ID:          uuid.New().String(),
		UserID:      user.UserID,
		Message:     clean,
		MessageType: model.ChatMessageTypeUser,
		Timestamp:   now,
	}
	if err := s.chats.Save(ctx, userMessage); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	// 本実装のボット応答はプレースホルダー。外部アシスタント統合時に置き換える。
	replyText := fmt.Sprintf("Hello %s, thanks for your message: '%s'. An intelligent assistant will be available here soon.", user.Name, clean)
	botMessage := &model.ChatMessage{
		ID:          uuid.New().String(),
		UserID:      user.UserID,
		Message:     replyText,
		MessageType: model.ChatMessageTypeBot,
		Timestamp:   s.now().UTC(),
	}
	if err := s.chats.Save(ctx, botMessage); err != nil {
		return nil, fmt.Errorf("failed to save bot message: %w", err)
	}

	slog.Info("chat message processed",
		slog.String("user_id", user.UserID),
	)

	return &BotReply{
		Message:   botMessage.Message,
		Timestamp: botMessage.Timestamp,
		UserID:    user.UserID,
	}, nil
}

// History はユーザーのチャット履歴を古い順で返す。
// limitが0以下の場合はデフォルトの50件を適用する。
func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history, err := s.chats.ListByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return history, nil
}
