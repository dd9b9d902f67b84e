package repository

import (
	"context"
	"errors"
	"time"

	"taskapi/internal/domain/model"
	domainrepo "taskapi/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type refreshTokenGormRepository struct {
	db *gorm.DB
}

// GORM実装
func NewRefreshTokenGormRepository(db *gorm.DB) domainrepo.RefreshTokenRepository {
	return &refreshTokenGormRepository{db: db}
}

// 発行記録を保存する。jti衝突はErrDuplicateJTIにして返す
func (r *refreshTokenGormRepository) Create(ctx context.Context, rt *model.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(rt).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrDuplicateJTI
		}
		return err
	}
	return nil
}

// 署名済み文字列で1件検索。revoke済み・期限切れは対象外
func (r *refreshTokenGormRepository) FindValidByToken(ctx context.Context, tokenString string) (*model.RefreshToken, error) {
	return r.findValid(ctx, "token = ?", tokenString)
}

// jtiで1件検索。フィルタは同じ
func (r *refreshTokenGormRepository) FindValidByJTI(ctx context.Context, jti string) (*model.RefreshToken, error) {
	return r.findValid(ctx, "jti = ?", jti)
}

func (r *refreshTokenGormRepository) findValid(ctx context.Context, cond string, arg string) (*model.RefreshToken, error) {
	var rt model.RefreshToken

	err := r.db.WithContext(ctx).
		Where(cond, arg).
		Where("revoked = ? AND expires_at > ?", false, time.Now()).
		First(&rt).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrRefreshTokenNotFound
		}
		return nil, err
	}

	return &rt, nil
}

// revoked=true にする。`revoked = false` を条件に入れた1文のUPDATEなので、
// 同じtokenを同時にrevokeしても勝つのは1リクエストだけ
func (r *refreshTokenGormRepository) Revoke(ctx context.Context, tokenString string) (bool, error) {
	now := time.Now()

	res := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("token = ? AND revoked = ?", tokenString, false).
		Updates(map[string]interface{}{
			"revoked":    true,
			"revoked_at": &now,
		})

	if res.Error != nil {
		return false, res.Error
	}

	//0件は「行がない or revoke済み」。冪等なのでエラーにしない
	return res.RowsAffected > 0, nil
}

// ユーザーの未revoke行をまとめてrevoke
func (r *refreshTokenGormRepository) RevokeAllByUserID(ctx context.Context, userID int64) (int64, error) {
	now := time.Now()

	res := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{
			"revoked":    true,
			"revoked_at": &now,
		})

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *refreshTokenGormRepository) CountActiveByUserID(ctx context.Context, userID int64) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, time.Now()).
		Count(&count).Error

	if err != nil {
		return 0, err
	}
	return count, nil
}

// 期限切れ行と、revokeからretention経過した行を物理削除する。
// 定期実行前提。リクエスト経路では呼ばない
func (r *refreshTokenGormRepository) DeleteExpiredAndRevoked(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention)

	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked = ? AND revoked_at < ?)", now, true, cutoff).
		Delete(&model.RefreshToken{})

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// postgresのunique制約違反（23505）かどうか
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
