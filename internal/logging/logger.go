package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Newはアプリ共通のzap loggerを作る。
// developmentでは読みやすいconsole出力、それ以外はJSON
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.Fields(zap.String("service", "taskapi")))
	if err != nil {
		return nil, err
	}
	return l, nil
}
