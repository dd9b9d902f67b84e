package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	//署名不正・種別不一致・期限切れなどはすべてこれに潰す
	ErrInvalidToken = errors.New("invalid token")

	//"15m" "7d" のような形式以外
	ErrInvalidLifetime = errors.New("invalid lifetime format")
)

// <整数><単位> 単位はs/m/h/d
var lifetimeRe = regexp.MustCompile(`^(\d+)([smhd])$`)

// Claimsはaccess/refresh共通のJWTクレーム。
// jtiはRegisteredClaims.IDに入る
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Kind   string `json:"kind"`
}

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte

	//"15m" "7d" の形式
	AccessLifetime  string
	RefreshLifetime string
}

// Issuerはtokenの署名と検証だけを行う。保存は呼び出し側の責務
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	//テストで固定できるように
	now func() time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	accessTTL, err := ParseLifetime(cfg.AccessLifetime)
	if err != nil {
		return nil, fmt.Errorf("access lifetime: %w", err)
	}
	refreshTTL, err := ParseLifetime(cfg.RefreshLifetime)
	if err != nil {
		return nil, fmt.Errorf("refresh lifetime: %w", err)
	}

	return &Issuer{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccessは短命のaccess tokenを署名して返す
func (i *Issuer) IssueAccess(userID int64) (string, error) {
	jti, err := NewTokenID()
	if err != nil {
		return "", err
	}
	return i.sign(userID, KindAccess, jti, i.accessSecret, i.accessTTL)
}

// IssueRefreshはrefresh tokenを署名して返す。
// jtiはDB保存用に別で返す（再パース不要にするため）
func (i *Issuer) IssueRefresh(userID int64) (tokenString string, jti string, err error) {
	jti, err = NewTokenID()
	if err != nil {
		return "", "", err
	}
	tokenString, err = i.sign(userID, KindRefresh, jti, i.refreshSecret, i.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return tokenString, jti, nil
}

// VerifyAccessはaccess tokenの署名・種別・期限を検証する。
// 失敗理由は呼び出し側に区別させない
func (i *Issuer) VerifyAccess(tokenString string) (*Claims, error) {
	return i.verify(tokenString, KindAccess, i.accessSecret)
}

// VerifyRefreshはrefresh tokenの署名・種別・期限を検証する
func (i *Issuer) VerifyRefresh(tokenString string) (*Claims, error) {
	return i.verify(tokenString, KindRefresh, i.refreshSecret)
}

// RefreshExpiresAtはいま発行するrefresh tokenの絶対期限
func (i *Issuer) RefreshExpiresAt() time.Time {
	return i.now().Add(i.refreshTTL)
}

func (i *Issuer) sign(userID int64, kind string, jti string, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Kind:   kind,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (i *Issuer) verify(tokenString string, kind string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		//HS256以外は受け付けない
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || t == nil || !t.Valid {
		return nil, ErrInvalidToken
	}

	//access tokenをrefreshとして使う（逆も）のを防ぐ
	if claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// NewTokenIDはjti用のランダム文字列（32バイトhex）を作る
func NewTokenID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ParseLifetimeは "15m" や "7d" をtime.Durationにする。
// time.ParseDurationは日単位を扱えないため自前でパースする
func ParseLifetime(spec string) (time.Duration, error) {
	m := lifetimeRe.FindStringSubmatch(spec)
	if m == nil {
		return 0, ErrInvalidLifetime
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, ErrInvalidLifetime
	}

	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, ErrInvalidLifetime
}
