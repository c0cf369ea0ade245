// Package server exposes the migration over HTTP with echo.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"graph2sql/internal/app"
	"graph2sql/internal/config"
	"graph2sql/internal/logging"
	"graph2sql/internal/migrate"
)

const shutdownTimeout = 10 * time.Second

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// Options configures a Server.
type Options struct {
	// Migration is the resolved base configuration; request bodies override
	// its warehouse section.
	Migration config.Migration
	Logger    *log.Logger

	// NewOrchestrator builds an orchestrator per request. app.NewOrchestrator
	// when nil.
	NewOrchestrator func(ctx context.Context, m config.Migration, logger *log.Logger) (*migrate.Orchestrator, error)
}

// Server serves the migration routes. At most one migration runs at a time.
type Server struct {
	echo   *echo.Echo
	cfg    config.Migration
	log    *log.Logger
	newOrc func(ctx context.Context, m config.Migration, logger *log.Logger) (*migrate.Orchestrator, error)

	running atomic.Bool
}

// New builds a Server with its routes registered.
func New(opts Options) *Server {
	s := &Server{
		cfg:    opts.Migration,
		log:    logging.Or(opts.Logger),
		newOrc: opts.NewOrchestrator,
	}
	if s.newOrc == nil {
		s.newOrc = app.NewOrchestrator
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Use(middleware.Recover())
	e.Use(requestLogger(s.log))

	s.echo = e
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(sctx); err != nil {
		s.log.Error("Failed to shutdown server", "err", err)
		return err
	}
	return nil
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			kv := []any{
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"latency", time.Since(start).Truncate(time.Microsecond),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("http request", kv...)
			case status >= http.StatusBadRequest:
				logger.Warn("http request", kv...)
			default:
				logger.Debug("http request", kv...)
			}
			return nil
		}
	}
}
