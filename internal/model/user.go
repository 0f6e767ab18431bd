// Package model はドメインモデルを定義する。
package model

import "time"

// IdentityClaim はIdPのIDトークン検証で得られる本人情報を表す。
// 永続化せず、ユーザーのupsertとセッショントークン発行に直ちに消費する。
// GoogleIDとEmailが空のIdentityClaimは不正である。
type IdentityClaim struct {
	GoogleID      string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// User はサービス利用ユーザーを表す。
// google_idとemailはユニークインデックスにより一意性が保証される。
type User struct {
	GoogleID      string    `bson:"google_id" json:"id"`
	Email         string    `bson:"email" json:"email"`
	Name          string    `bson:"name" json:"name"`
	Picture       string    `bson:"picture" json:"picture"`
	EmailVerified bool      `bson:"email_verified" json:"email_verified"`
	CreatedAt     time.Time `bson:"created_at" json:"-"`
	UpdatedAt     time.Time `bson:"updated_at" json:"-"`
	LastLogin     time.Time `bson:"last_login" json:"-"`
}

// CurrentUser は認証ゲートがリクエストコンテキストに注入する本人情報。
// 1リクエストのライフタイムに限定され、リクエスト間で共有しない。
// Sessionはアクティブなセッションレコードが存在する場合のみ設定される。
type CurrentUser struct {
	UserID  string
	Email   string
	Name    string
	User    *User
	Session *Session
}
