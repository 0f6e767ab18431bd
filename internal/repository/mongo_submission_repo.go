package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/chatgate/internal/model"
)

// MongoSubmissionRepo はMongoDBを使用した問い合わせフォーム送信リポジトリ。
type MongoSubmissionRepo struct {
	coll *mongo.Collection
}

// NewMongoSubmissionRepo はMongoSubmissionRepoを生成する。
func NewMongoSubmissionRepo(db *mongo.Database) *MongoSubmissionRepo {
	return &MongoSubmissionRepo{coll: db.Collection("submissions")}
}

// Create は送信レコードを保存する。
func (r *MongoSubmissionRepo) Create(ctx context.Context, submission *model.Submission) error {
	_, err := r.coll.InsertOne(ctx, submission)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// List は全送信レコードを送信時刻の昇順で返す。
func (r *MongoSubmissionRepo) List(ctx context.Context) ([]model.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var submissions []model.Submission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}

	return submissions, nil
}

// compile-time interface check
var _ SubmissionRepository = (*MongoSubmissionRepo)(nil)
