package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/chatgate/internal/model"
)

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection("users")}
}

// Upsert は検証済み本人情報からユーザーを作成または更新する。
// created_atは$setOnInsertにより初回挿入時のみ設定され、以降の呼び出しでは維持される。
func (r *MongoUserRepo) Upsert(ctx context.Context, claim *model.IdentityClaim) (*model.User, error) {
	now := time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"google_id":      claim.GoogleID,
			"email":          claim.Email,
			"name":           claim.Name,
			"picture":        claim.Picture,
			"email_verified": claim.EmailVerified,
			"last_login":     now,
			"updated_at":     now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"google_id": claim.GoogleID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return r.FindByGoogleID(ctx, claim.GoogleID)
}

// FindByGoogleID は指定google_idのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	user := &model.User{}
	err := r.coll.FindOne(ctx, bson.M{"google_id": googleID}).Decode(user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google_id: %w", err)
	}
	return user, nil
}

// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
