// Package auth はIDトークンの検証とログイン・ログアウトのビジネスロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/repository"
	"github.com/hitoshi/chatgate/internal/token"
)

// ErrIdentityRejected はIdPのIDトークンが検証に失敗したことを示す。
// ハンドラーはこのエラーを401に、その他のエラーを500に対応付ける。
var ErrIdentityRejected = errors.New("identity token rejected")

// TokenIssuer はセッショントークンの発行・検証・リフレッシュのインターフェース。
// token.Issuerの部分集合として定義する。
type TokenIssuer interface {
	Issue(userID, email, name string) (string, time.Time, error)
	Verify(tokenString string) (*token.Claims, error)
	Refresh(tokenString string) (string, bool, error)
	TTL() time.Duration
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	verifier    IdentityVerifier
	issuer      TokenIssuer
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceを生成する。
func NewService(
	verifier IdentityVerifier,
	issuer TokenIssuer,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
) *Service {
	return &Service{
		verifier:    verifier,
		issuer:      issuer,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

// LoginResult はログイン成功時の結果を表す。
type LoginResult struct {
	User      *model.User
	Token     string
	ExpiresIn int // 秒
}

// Login はIdPのIDトークンをローカルのセッショントークンに交換する。
//  1. IDトークンを検証して本人情報を取得
//  2. ユーザーレコードをupsert
//  3. セッショントークンを発行
//  4. 既存のアクティブセッションを無効化してから新規セッションを記録
//     （単一アクティブセッションポリシー）
func (s *Service) Login(ctx context.Context, rawIDToken string) (*LoginResult, error) {
	claim, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		slog.Warn("identity token rejected", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrIdentityRejected, err)
	}

	user, err := s.userRepo.Upsert(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	tokenString, expiresAt, err := s.issuer.Issue(claim.GoogleID, claim.Email, claim.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	if _, err := s.sessionRepo.InvalidateActiveByUserID(ctx, claim.GoogleID); err != nil {
		return nil, fmt.Errorf("failed to invalidate previous sessions: %w", err)
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    claim.GoogleID,
		Token:     tokenString,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", claim.GoogleID),
		slog.String("email", claim.Email),
	)

	return &LoginResult{
		User:      user,
		Token:     tokenString,
		ExpiresIn: int(s.issuer.TTL().Seconds()),
	}, nil
}

// Logout は指定ユーザーのアクティブセッションを無効化する。
// アクティブセッションが存在しない場合はfalseを返す（エラーではない）。
// トークン自体は有効期限まで署名上有効なままだが、セッションレコードの
// 無効化によりサーバー側でログアウト済みと判定できる。
func (s *Service) Logout(ctx context.Context, userID string) (bool, error) {
	session, err := s.sessionRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to find active session: %w", err)
	}
	if session == nil {
		return false, nil
	}

	invalidated, err := s.sessionRepo.Invalidate(ctx, session.ID)
	if err != nil {
		return false, fmt.Errorf("failed to invalidate session: %w", err)
	}

	if invalidated {
		slog.Info("user logged out",
			slog.String("user_id", userID),
			slog.String("session_id", session.ID),
		)
	}

	return invalidated, nil
}

// RefreshResult はリフレッシュ結果を表す。
type RefreshResult struct {
	Token     string
	ExpiresIn int  // 秒
	Rotated   bool // 新規トークンが発行された場合true
}

// Refresh はセッショントークンのリフレッシュを行う。
// トークンがローテーションされた場合は旧セッションを無効化し、
// クライアントが実際に保持するトークンと整合する新規セッションを記録する。
func (s *Service) Refresh(ctx context.Context, userID, tokenString string) (*RefreshResult, error) {
	refreshed, rotated, err := s.issuer.Refresh(tokenString)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{
		Token:     refreshed,
		ExpiresIn: int(s.issuer.TTL().Seconds()),
		Rotated:   rotated,
	}
	if !rotated {
		return result, nil
	}

	claims, err := s.issuer.Verify(refreshed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rotated token: %w", err)
	}

	if _, err := s.sessionRepo.InvalidateActiveByUserID(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to invalidate previous sessions: %w", err)
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     refreshed,
		CreatedAt: now,
		ExpiresAt: claims.ExpiresAt,
		IsActive:  true,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("session token rotated", slog.String("user_id", userID))

	return result, nil
}
