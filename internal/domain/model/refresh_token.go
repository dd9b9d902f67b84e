package model

import "time"

// refresh tokenの発行記録。署名が有効でも行が無効なら認証は通らない
type RefreshToken struct {
	ID     string `json:"id" gorm:"type:uuid;primaryKey"`
	UserID int64  `json:"user_id" gorm:"not null;index"`

	//署名済みtoken文字列そのもの（ログイン中のクライアントが持つ値）
	Token string `json:"-" gorm:"type:text;not null;index"`

	//tokenに埋め込んだjti。文字列とは独立に引けるようuniqueにする
	JTI string `json:"jti" gorm:"column:jti;not null;uniqueIndex"`

	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	Revoked   bool       `json:"revoked" gorm:"not null;default:false"`
	RevokedAt *time.Time `json:"revoked_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// revoke済みでも期限切れでもない行だけが認証に使える
func (rt *RefreshToken) IsValid(now time.Time) bool {
	return !rt.Revoked && rt.ExpiresAt.After(now)
}
