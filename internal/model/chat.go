package model

import "time"

// チャットメッセージの送信者種別。
const (
	ChatMessageTypeUser = "user"
	ChatMessageTypeBot  = "bot"
)

// ChatMessage はチャット履歴の1メッセージを表す。
// 履歴は追記専用で、更新・削除は行わない。
type ChatMessage struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	Message     string    `bson:"message" json:"message"`
	MessageType string    `bson:"message_type" json:"message_type"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}
