// Package httpserver exposes health and metrics endpoints for operators.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	pingTimeout     = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the ops HTTP server.
type Server struct {
	echo   *echo.Echo
	listen string
	logger *slog.Logger
}

// New builds the server. metrics may be nil to leave /metrics out.
func New(listen string, db Pinger, metrics http.Handler, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "Health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	return &Server{echo: e, listen: listen, logger: logger.With("component", "http")}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.listen)
		errCh <- s.echo.Start(s.listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
