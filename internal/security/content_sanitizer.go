// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はチャットメッセージやフォーム入力の自由記述テキストを
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリの厳格ポリシーで、HTMLタグを一切通過させない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は自由記述テキストのサニタイズ機能のインターフェースを定義する。
// チャットメッセージおよびフォーム送信の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は自由記述テキストをサニタイズして安全な文字列を返す。
	// すべてのHTMLタグ（script, iframe, style, img等）を除去し、テキスト内容のみを残す。
	// 前後の空白文字は取り除かれる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 保存対象はプレーンテキストのみであるため、タグをひとつも許可しない
// StrictPolicyを使用する。on*イベント属性やjavascriptスキームも
// タグごと除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は自由記述テキストをサニタイズして安全な文字列を返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
