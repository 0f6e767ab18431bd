package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/chatgate/internal/model"
)

// MongoChatRepo はMongoDBを使用したチャット履歴リポジトリ。
type MongoChatRepo struct {
	coll *mongo.Collection
}

// NewMongoChatRepo はMongoChatRepoを生成する。
func NewMongoChatRepo(db *mongo.Database) *MongoChatRepo {
	return &MongoChatRepo{coll: db.Collection("chat_history")}
}

// Save はチャットメッセージを履歴に追記する。
func (r *MongoChatRepo) Save(ctx context.Context, message *model.ChatMessage) error {
	_, err := r.coll.InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// ListByUserID は指定ユーザーの履歴を古い順に最大limit件返す。
// timestamp降順でlimit件取得してから反転し、直近limit件を時系列昇順で返す。
func (r *MongoChatRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []model.ChatMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}

	// 反転して時系列昇順にする
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// compile-time interface check
var _ ChatRepository = (*MongoChatRepo)(nil)
