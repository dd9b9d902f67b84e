package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskapi/internal/handler"
)

var startedAt = time.Now()

// APIルーティング定義
func (s *Server) RegisterRoutes(env string, authH *handler.AuthHandler, taskH *handler.TaskHandler, requireAuth echo.MiddlewareFunc) {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"environment":    env,
			"uptime_seconds": int64(time.Since(startedAt).Seconds()),
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
		})
	})

	authH.RegisterRoutes(api, requireAuth)
	taskH.RegisterRoutes(api, requireAuth)
}
