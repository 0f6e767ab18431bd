package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/chatgate/internal/model"
)

// MongoSessionRepo はMongoDBを使用したセッションリポジトリ。
type MongoSessionRepo struct {
	coll *mongo.Collection
}

// NewMongoSessionRepo はMongoSessionRepoを生成する。
func NewMongoSessionRepo(db *mongo.Database) *MongoSessionRepo {
	return &MongoSessionRepo{coll: db.Collection("sessions")}
}

// Create はセッションレコードを無条件に挿入する。
// 同一ユーザーの既存セッションの重複排除は行わない。単一アクティブの維持は
// 呼び出し側がInvalidateActiveByUserIDを先に呼ぶことで担保する。
func (r *MongoSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.coll.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindActiveByUserID は指定ユーザーのアクティブなセッションを取得する。
// is_active かつ expires_at > now のレコードのみ対象。見つからない場合はnilを返す。
func (r *MongoSessionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error) {
	session := &model.Session{}
	err := r.coll.FindOne(ctx, bson.M{
		"user_id":    userID,
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(session)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	return session, nil
}

// Invalidate は指定セッションを非アクティブにしてinvalidated_atを記録する。
// フィルタにis_active=trueを含めるため冪等で、既に非アクティブの場合はfalseを返す。
func (r *MongoSessionRepo) Invalidate(ctx context.Context, sessionID string) (bool, error) {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": sessionID, "is_active": true},
		bson.M{"$set": bson.M{
			"is_active":      false,
			"invalidated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to invalidate session: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// InvalidateActiveByUserID は指定ユーザーのアクティブな全セッションを無効化する。
func (r *MongoSessionRepo) InvalidateActiveByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_active": true},
		bson.M{"$set": bson.M{
			"is_active":      false,
			"invalidated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate user sessions: %w", err)
	}
	return result.ModifiedCount, nil
}

// SweepExpired は期限切れだがis_activeのままのレコードを一括で非アクティブにする。
// 冪等: 対象がない場合は0件を返す。
func (r *MongoSessionRepo) SweepExpired(ctx context.Context) (int64, error) {
	result, err := r.coll.UpdateMany(ctx,
		bson.M{
			"is_active":  true,
			"expires_at": bson.M{"$lt": time.Now().UTC()},
		},
		bson.M{"$set": bson.M{
			"is_active":  false,
			"expired_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	return result.ModifiedCount, nil
}

// compile-time interface check
var _ SessionRepository = (*MongoSessionRepo)(nil)
