// Package server runs the HTTP server and shuts it down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"product-service/internal/config"
	"product-service/internal/observability"
)

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// New builds an http.Server from the configured address and timeouts.
// Zero timeouts fall back to the defaults.
func New(cfg *config.Config, handler http.Handler) *http.Server {
	timeouts := config.ServerConfig{}
	if cfg.Server != nil {
		timeouts = *cfg.Server
	}

	return &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadTimeout:       orDefault(timeouts.ReadTimeout, defaultReadTimeout),
		ReadHeaderTimeout: orDefault(timeouts.ReadTimeout, defaultReadTimeout),
		WriteTimeout:      orDefault(timeouts.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       orDefault(timeouts.IdleTimeout, defaultIdleTimeout),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most shutdownTimeout.
func Run(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *observability.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx).Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background()).Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), orDefault(shutdownTimeout, defaultShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
