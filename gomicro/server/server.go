// Package server assembles the echo instance every service runs on.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/metrics"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// New returns an echo instance with the common middleware chain and the
// /health and /metrics endpoints. The rate limiter's cleanup loop stops with ctx.
func New(ctx context.Context, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	limiter.StartCleanup(ctx, time.Minute)

	// order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(metrics.NewHTTPMetrics(cfg.ServiceName).Middleware())
	e.Use(limiter.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":  "healthy",
			"service": cfg.ServiceName,
		})
	})
	e.GET("/metrics", metrics.Handler)
	return e
}

// Run serves e on port until ctx is done, then shuts it down gracefully
func Run(ctx context.Context, e *echo.Echo, port string) error {
	log := logger.GetLogger()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
