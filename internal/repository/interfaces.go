// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/chatgate/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Upsert は検証済み本人情報からユーザーを作成または更新し、保存後のレコードを返す。
	// 冪等: 同一google_idに対する2回目以降の呼び出しはupdated_at/last_loginのみ更新し、
	// created_atは初回の値を維持する。
	Upsert(ctx context.Context, claim *model.IdentityClaim) (*model.User, error)

	// FindByGoogleID は指定google_idのユーザーを取得する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// SessionRepository はセッションレコードの永続化インターフェース。
// レコードは物理削除しない。無効化はis_activeフラグの反転で表現する。
type SessionRepository interface {
	// Create はセッションレコードを無条件に挿入する。
	Create(ctx context.Context, session *model.Session) error

	// FindActiveByUserID は指定ユーザーのアクティブなセッションを取得する。
	// アクティブ = is_active かつ expires_at > now。見つからない場合はnilを返す。
	FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error)

	// Invalidate は指定セッションをis_active=falseにしてinvalidated_atを記録する。
	// 冪等: 既に非アクティブの場合はfalseを返す（エラーではない）。
	Invalidate(ctx context.Context, sessionID string) (bool, error)

	// InvalidateActiveByUserID は指定ユーザーのアクティブな全セッションを無効化し、
	// 無効化した件数を返す。ログイン時の単一アクティブセッション維持に使用する。
	InvalidateActiveByUserID(ctx context.Context, userID string) (int64, error)

	// SweepExpired は期限切れだがis_activeのままのレコードを一括で非アクティブにし、
	// expired_atを記録して件数を返す。リクエストパスでは呼ばない。
	SweepExpired(ctx context.Context) (int64, error)
}

// ChatRepository はチャット履歴の永続化インターフェース。追記専用。
type ChatRepository interface {
	// Save はチャットメッセージを履歴に追記する。
	Save(ctx context.Context, message *model.ChatMessage) error

	// ListByUserID は指定ユーザーの履歴を古い順に最大limit件返す。
	// 直近limit件を取得してから時系列昇順に並べ替える。
	ListByUserID(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
}

// SubmissionRepository は問い合わせフォーム送信の永続化インターフェース。
type SubmissionRepository interface {
	// Create は送信レコードを保存する。
	Create(ctx context.Context, submission *model.Submission) error

	// List は全送信レコードを送信時刻の昇順で返す。
	List(ctx context.Context) ([]model.Submission, error)
}
