package usecase

import (
	"context"
	"errors"
	"time"

	"taskapi/internal/domain/model"
	"taskapi/internal/repository"
	"taskapi/internal/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// jti衝突時に作り直す回数。衝突自体がほぼ起きない前提
const issueRetries = 2

type TokenLifetimes struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type TokenPair struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    TokenLifetimes `json:"expires_in"`
}

// TokenUsecaseはセッションのライフサイクルを管理する。
// refresh token行を書き換えるのはここだけ
type TokenUsecase struct {
	issuer    *token.Issuer
	rtRepo    repository.RefreshTokenRepository
	lifetimes TokenLifetimes
	retention time.Duration
	logger    *zap.Logger
}

func NewTokenUsecase(
	issuer *token.Issuer,
	rtRepo repository.RefreshTokenRepository,
	lifetimes TokenLifetimes,
	retention time.Duration,
	logger *zap.Logger,
) *TokenUsecase {
	return &TokenUsecase{
		issuer:    issuer,
		rtRepo:    rtRepo,
		lifetimes: lifetimes,
		retention: retention,
		logger:    logger,
	}
}

// Issueはaccess/refreshのペアを発行してrefresh行を保存する。
// 登録・ログイン・rotationはすべてここを通る
func (u *TokenUsecase) Issue(ctx context.Context, userID int64) (*TokenPair, error) {
	accessToken, err := u.issuer.IssueAccess(userID)
	if err != nil {
		return nil, ErrInternal
	}

	for attempt := 0; attempt <= issueRetries; attempt++ {
		refreshToken, jti, err := u.issuer.IssueRefresh(userID)
		if err != nil {
			return nil, ErrInternal
		}

		rt := &model.RefreshToken{
			ID:        uuid.NewString(),
			UserID:    userID,
			Token:     refreshToken,
			JTI:       jti,
			ExpiresAt: u.issuer.RefreshExpiresAt(),
		}

		if err := u.rtRepo.Create(ctx, rt); err != nil {
			//jti衝突はtokenごと作り直す
			if errors.Is(err, repository.ErrDuplicateJTI) {
				u.logger.Warn("jti collision, reissuing", zap.Int64("user_id", userID))
				continue
			}
			return nil, ErrInternal
		}

		u.logger.Debug("issued token pair", zap.Int64("user_id", userID))

		return &TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    u.lifetimes,
		}, nil
	}

	return nil, ErrInternal
}

// ValidateRefreshは署名検証とDB照合の両方が通ったときだけclaimsを返す。
// revoke済みのtokenは署名が有効なままでもここで弾かれる
func (u *TokenUsecase) ValidateRefresh(ctx context.Context, refreshToken string) (*token.Claims, error) {
	claims, err := u.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	//行がない＝発行記録がない or revoke済み or 期限切れ。fail closed
	if _, err := u.rtRepo.FindValidByToken(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, ErrInternal
	}

	return claims, nil
}

// Rotateは旧tokenをrevokeして新しいペアを発行する。
// refresh成功のたびに必ず呼ぶ（refresh tokenは使い切り）。
// 旧行が既に消えていてもrotation自体は続行する
func (u *TokenUsecase) Rotate(ctx context.Context, oldToken string, userID int64) (*TokenPair, error) {
	if _, err := u.rtRepo.Revoke(ctx, oldToken); err != nil {
		return nil, ErrInternal
	}
	return u.Issue(ctx, userID)
}

// Revokeは単一セッションのログアウト。revoke済みをもう一度revokeしてもエラーではない
func (u *TokenUsecase) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	revoked, err := u.rtRepo.Revoke(ctx, refreshToken)
	if err != nil {
		return false, ErrInternal
	}
	return revoked, nil
}

// RevokeAllは全セッションの失効。ログアウト（全端末）とパスワード変更時に呼ぶ
func (u *TokenUsecase) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	count, err := u.rtRepo.RevokeAllByUserID(ctx, userID)
	if err != nil {
		return 0, ErrInternal
	}
	if count > 0 {
		u.logger.Info("revoked all sessions", zap.Int64("user_id", userID), zap.Int64("count", count))
	}
	return count, nil
}

func (u *TokenUsecase) ActiveSessionCount(ctx context.Context, userID int64) (int64, error) {
	count, err := u.rtRepo.CountActiveByUserID(ctx, userID)
	if err != nil {
		return 0, ErrInternal
	}
	return count, nil
}

// Cleanupは期限切れ行とrevoke後retentionを過ぎた行を物理削除する。
// 定期実行される。同時に/何度呼んでも安全
func (u *TokenUsecase) Cleanup(ctx context.Context) (int64, error) {
	count, err := u.rtRepo.DeleteExpiredAndRevoked(ctx, time.Now(), u.retention)
	if err != nil {
		return 0, ErrInternal
	}
	if count > 0 {
		u.logger.Info("cleaned up refresh tokens", zap.Int64("count", count))
	}
	return count, nil
}
