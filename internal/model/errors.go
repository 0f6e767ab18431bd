package model

import "fmt"

// APIError はAPIの統一エラーフォーマットを表す。
// ワイヤー上は {"error": <メッセージ>, "code": <機械可読コード>} として返す。
type APIError struct {
	Code    string // 機械可読エラーコード
	Message string // 人間向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 認証ゲートの分類済みエラーコード
const (
	ErrCodeMissingToken       = "MISSING_TOKEN"
	ErrCodeInvalidTokenFormat = "INVALID_TOKEN_FORMAT"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeAuthError          = "AUTH_ERROR"
)

// その他のエラーコード
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// NewMissingTokenError はAuthorizationヘッダー欠如エラーを生成する。
func NewMissingTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeMissingToken,
		Message: "authorization token is required",
	}
}

// NewInvalidTokenFormatError はBearerスキーム不正エラーを生成する。
func NewInvalidTokenFormatError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidTokenFormat,
		Message: "invalid authorization format, use: Bearer <token>",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
// 期限切れ・署名不正・不正形式の区別はログにのみ残し、クライアントには共通コードを返す。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidToken,
		Message: "invalid or expired token",
	}
}

// NewUserNotFoundError は検証済みトークンの主体に対応するユーザーが
// 存在しない場合のエラーを生成する。アカウント削除後のトークン使用を遮断する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeUserNotFound,
		Message: "user not found",
	}
}

// NewAuthInternalError は認証シーケンス中の内部障害エラーを生成する。
func NewAuthInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeAuthError,
		Message: "internal authentication error",
	}
}

// NewValidationError は入力検証エラーを生成する。フィールド名をメッセージに含める。
func NewValidationError(field string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("field '%s' is required", field),
	}
}

// NewInternalError は内部エラーを生成する。依存先の詳細はログのみに残す。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternalError,
		Message: "internal server error",
	}
}
