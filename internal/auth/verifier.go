package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/hitoshi/chatgate/internal/model"
)

// IdentityVerifier はIdP発行のIDトークンを検証するインターフェース。
type IdentityVerifier interface {
	// Verify はIDトークンの署名・有効期限・audienceを検証し、本人情報を返す。
	// 不正形式・署名不正・audience不一致・IdP通信障害はすべて単一の拒否として返す。
	Verify(ctx context.Context, rawToken string) (*model.IdentityClaim, error)
}

// GoogleVerifier はGoogleのIDトークンを検証する。
// 署名鍵はGoogleの公開JWKSから取得・キャッシュされる（idtokenライブラリが担う）。
type GoogleVerifier struct {
	clientID  string
	validator *idtoken.Validator
}

// NewGoogleVerifier はGoogleVerifierを生成する。
// clientIDはこのアプリケーションに登録されたOAuthクライアントID。
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client ID is required")
	}

	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create idtoken validator: %w", err)
	}

	return &GoogleVerifier{
		clientID:  clientID,
		validator: validator,
	}, nil
}

// Verify はGoogleのIDトークンを検証して本人情報を抽出する。
// audienceはライブラリの検証に任せず、ここでも明示的に照合する。
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*model.IdentityClaim, error) {
	payload, err := v.validator.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("google id token validation failed: %w", err)
	}

	// 明示的なaudienceチェック
	if payload.Audience != v.clientID {
		return nil, fmt.Errorf("google id token audience mismatch")
	}

	claim := &model.IdentityClaim{
		GoogleID: payload.Subject,
	}
	if email, ok := payload.Claims["email"].(string); ok {
		claim.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		claim.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		claim.Picture = picture
	}
	// email_verifiedが欠落している場合はfalse扱い
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		claim.EmailVerified = verified
	}

	if claim.GoogleID == "" || claim.Email == "" {
		return nil, fmt.Errorf("google id token is missing sub or email claim")
	}

	return claim, nil
}

// compile-time interface check
var _ IdentityVerifier = (*GoogleVerifier)(nil)
