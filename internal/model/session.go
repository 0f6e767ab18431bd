package model

import "time"

// Session はサーバー側で追跡するログインセッションのレコードを表す。
// トークン自体は自己完結の署名付きクレデンシャルであり、Sessionレコードは
// トークン有効期限と独立したサーバー側の無効化（ログアウト）のために存在する。
// レコードは物理削除しない。無効化・期限切れはis_activeフラグの反転で表現する。
type Session struct {
	ID            string     `bson:"_id" json:"session_id"`
	UserID        string     `bson:"user_id" json:"user_id"`
	Token         string     `bson:"token" json:"-"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	ExpiresAt     time.Time  `bson:"expires_at" json:"expires_at"`
	IsActive      bool       `bson:"is_active" json:"is_active"`
	InvalidatedAt *time.Time `bson:"invalidated_at,omitempty" json:"-"`
	ExpiredAt     *time.Time `bson:"expired_at,omitempty" json:"-"`
}
