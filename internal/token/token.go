// Package token はローカル発行のセッショントークンの発行・検証・リフレッシュを提供する。
// トークンはサーバー保持の共通鍵でHS256署名されたJWTであり、署名と有効期限のみで
// 有効性が決まる自己完結型クレデンシャルである。サーバー側の無効化（ログアウト）は
// セッションストアが担い、本パッケージは関知しない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// リフレッシュ閾値。残り有効期間がこれを超えるトークンは再署名しない。
const refreshThreshold = 10 * time.Minute

// 検証失敗の分類。呼び出し側はいずれも拒否として扱うが、区別はログに残す。
var (
	// ErrExpired は署名は正当だが有効期限切れのトークンを示す。
	ErrExpired = errors.New("token expired")
	// ErrMalformed は不正形式または署名不正のトークンを示す。
	ErrMalformed = errors.New("token malformed or invalid signature")
)

// Claims はセッショントークンに載せる本人情報を表す。
type Claims struct {
	UserID    string
	Email     string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// sessionClaims はJWTペイロードの表現。subにUserIDを載せる。
type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Issuer はセッショントークンの発行と検証を行う。
// nowは注入可能で、テストで境界条件を検証するために使用する。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer はIssuerを生成する。ttlが0以下の場合は1時間を使用する。
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewIssuerWithClock は時刻関数を指定してIssuerを生成する。テスト用。
func NewIssuerWithClock(secret []byte, ttl time.Duration, now func() time.Time) *Issuer {
	i := NewIssuer(secret, ttl)
	i.now = now
	return i
}

// TTL はトークンの有効期間を返す。
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue は検証済みの本人情報からセッショントークンを発行する。
// iat=now、exp=now+TTLを設定してHS256で署名する。同一入力と同一時刻に対して決定的。
func (i *Issuer) Issue(userID, email, name string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := sessionClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify はセッショントークンの署名と有効期限を検証し、クレームを返す。
// 失敗はErrExpired（期限切れ）またはErrMalformed（それ以外すべて）に分類する。
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &sessionClaims{},
		func(t *jwt.Token) (any, error) {
			// HMAC以外の署名方式は受け付けない
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	sc, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if sc.Subject == "" {
		return nil, ErrMalformed
	}

	claims := &Claims{
		UserID: sc.Subject,
		Email:  sc.Email,
		Name:   sc.Name,
	}
	if sc.IssuedAt != nil {
		claims.IssuedAt = sc.IssuedAt.Time
	}
	if sc.ExpiresAt != nil {
		claims.ExpiresAt = sc.ExpiresAt.Time
	}

	return claims, nil
}

// Refresh はトークンのリフレッシュを行う。
// 残り有効期間が10分を超える有効なトークンはそのまま返す（rotated=false）。
// 残り10分以下の有効なトークンはデコード済みクレームから新規発行する（rotated=true）。
// 無効・期限切れのトークンは拒否する。
func (i *Issuer) Refresh(tokenString string) (string, bool, error) {
	claims, err := i.Verify(tokenString)
	if err != nil {
		return "", false, err
	}

	if claims.ExpiresAt.Sub(i.now()) > refreshThreshold {
		return tokenString, false, nil
	}

	rotated, _, err := i.Issue(claims.UserID, claims.Email, claims.Name)
	if err != nil {
		return "", false, err
	}
	return rotated, true, nil
}
