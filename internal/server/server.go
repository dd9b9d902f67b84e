package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"taskapi/internal/middleware"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
	addr   string
}

func New(addr string, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.Metrics())

	return &Server{echo: e, logger: logger, addr: addr}
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// SIGINT/SIGTERMを受けるまでブロックし、受けたら猶予付きで停止する
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info("server started", zap.String("addr", s.addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
