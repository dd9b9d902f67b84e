package config

import (
	"fmt"
	"os"
	"strconv"

	"taskapi/internal/token"
)

// tokenの署名secretの最低バイト数
const minSecretLen = 32

// Configはアプリ全体の設定。起動時に1度だけ作り、以後は変更しない
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string // disable/require

	AccessTokenSecret  string // access token署名secret
	RefreshTokenSecret string // refresh token署名secret（accessとは別物）

	AccessTokenLifetime  string // "15m" 形式
	RefreshTokenLifetime string // "7d" 形式

	RevokedRetention string // revoke済み行を残す期間（"24h"）
	CleanupInterval  string // 掃除の実行間隔（"1h"）

	GoEnv string // development/production
}

// Loadは環境変数から設定を組み立てる
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),

		AccessTokenLifetime:  getenv("ACCESS_TOKEN_LIFETIME", "15m"),
		RefreshTokenLifetime: getenv("REFRESH_TOKEN_LIFETIME", "7d"),

		RevokedRetention: getenv("REVOKED_RETENTION", "24h"),
		CleanupInterval:  getenv("CLEANUP_INTERVAL", "1h"),

		GoEnv: getenv("GO_ENV", "development"),
	}

	//必須チェック
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}

	//secretは2本とも必須。短いsecretは起動させない
	if len(cfg.AccessTokenSecret) < minSecretLen {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d bytes", minSecretLen)
	}
	if len(cfg.RefreshTokenSecret) < minSecretLen {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d bytes", minSecretLen)
	}

	//期間まわりは形式だけ先に確認しておく
	for key, spec := range map[string]string{
		"ACCESS_TOKEN_LIFETIME":  cfg.AccessTokenLifetime,
		"REFRESH_TOKEN_LIFETIME": cfg.RefreshTokenLifetime,
		"REVOKED_RETENTION":      cfg.RevokedRetention,
		"CLEANUP_INTERVAL":       cfg.CleanupInterval,
	} {
		if _, err := token.ParseLifetime(spec); err != nil {
			return Config{}, fmt.Errorf("%s: %w", key, err)
		}
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
