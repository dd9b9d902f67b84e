package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"taskapi/internal/config"
	"taskapi/internal/domain/model"
	"taskapi/internal/handler"
	"taskapi/internal/infra/db"
	infraRepo "taskapi/internal/infra/repository"
	"taskapi/internal/logging"
	"taskapi/internal/middleware"
	"taskapi/internal/server"
	"taskapi/internal/token"
	"taskapi/internal/usecase"
	"taskapi/internal/validator"
)

func main() {
	// .envが無くても環境変数だけで動かせる
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.GoEnv)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Task{},
	); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	//JWT issuer
	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:    []byte(cfg.AccessTokenSecret),
		RefreshSecret:   []byte(cfg.RefreshTokenSecret),
		AccessLifetime:  cfg.AccessTokenLifetime,
		RefreshLifetime: cfg.RefreshTokenLifetime,
	})
	if err != nil {
		logger.Fatal("issuer init failed", zap.Error(err))
	}

	retention, err := token.ParseLifetime(cfg.RevokedRetention)
	if err != nil {
		logger.Fatal("invalid REVOKED_RETENTION", zap.Error(err))
	}
	cleanupInterval, err := token.ParseLifetime(cfg.CleanupInterval)
	if err != nil {
		logger.Fatal("invalid CLEANUP_INTERVAL", zap.Error(err))
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(gormDB)
	taskRepo := infraRepo.NewTaskGormRepository(gormDB)

	//Usecase生成
	tokenUC := usecase.NewTokenUsecase(issuer, rtRepo, usecase.TokenLifetimes{
		AccessToken:  cfg.AccessTokenLifetime,
		RefreshToken: cfg.RefreshTokenLifetime,
	}, retention, logger)
	authUC := usecase.NewAuthUsecase(userRepo, tokenUC, validator.NewAuthValidator(userRepo), logger)
	taskUC := usecase.NewTaskUsecase(taskRepo, validator.NewTaskValidator(), logger)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	taskH := handler.NewTaskHandler(taskUC)
	requireAuth := middleware.RequireAuth(issuer, userRepo)

	//期限切れ・revoke済み行の定期掃除
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			deleted, err := tokenUC.Cleanup(ctx)
			cancel()
			if err != nil {
				logger.Warn("token cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				logger.Info("token cleanup", zap.Int64("deleted", deleted))
			}
		}
	}()

	//Server起動
	srv := server.New(":"+cfg.Port, logger)
	srv.RegisterRoutes(cfg.GoEnv, authH, taskH, requireAuth)
	if err := srv.Run(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
