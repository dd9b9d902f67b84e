package repository

import (
	"context"
	"errors"
	"time"

	"taskapi/internal/domain/model"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	//jtiのunique制約違反。発行側はjtiを作り直してリトライする
	ErrDuplicateJTI = errors.New("duplicate jti")
)

// refresh tokenの発行記録の保存・検索・失効
type RefreshTokenRepository interface {
	Create(ctx context.Context, rt *model.RefreshToken) error

	//署名済み文字列で検索。revoke済み・期限切れは返さない
	FindValidByToken(ctx context.Context, tokenString string) (*model.RefreshToken, error)

	//jtiで検索。フィルタはFindValidByTokenと同じ
	FindValidByJTI(ctx context.Context, jti string) (*model.RefreshToken, error)

	//revoked=true, revoked_at=now にする。行がない・revoke済みならfalse（エラーではない）
	Revoke(ctx context.Context, tokenString string) (bool, error)

	//ユーザーの未revoke行をまとめてrevokeして件数を返す
	RevokeAllByUserID(ctx context.Context, userID int64) (int64, error)

	CountActiveByUserID(ctx context.Context, userID int64) (int64, error)

	//期限切れ行と、revoke後retentionを過ぎた行を物理削除して件数を返す
	DeleteExpiredAndRevoked(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}
