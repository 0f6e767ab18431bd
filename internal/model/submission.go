package model

import "time"

// Submission は問い合わせフォームの送信内容を表す。
// AuthenticatedUserは任意認証ゲートで本人確認できた場合のみ設定される。
type Submission struct {
	ID                string    `bson:"_id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	Email             string    `bson:"email" json:"email"`
	Message           string    `bson:"message" json:"message"`
	Company           string    `bson:"company,omitempty" json:"company,omitempty"`
	Phone             string    `bson:"phone,omitempty" json:"phone,omitempty"`
	ServiceType       string    `bson:"service_type,omitempty" json:"service_type,omitempty"`
	AuthenticatedUser string    `bson:"authenticated_user,omitempty" json:"authenticated_user,omitempty"`
	Timestamp         time.Time `bson:"timestamp" json:"timestamp"`
}
