package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"textsubmission/app/config"
	"textsubmission/app/database"
	"textsubmission/app/metrics"
	"textsubmission/app/repositories"
	"textsubmission/app/routes"
	"textsubmission/app/services"
)

// NewHandler builds the HTTP handler serving repo according to cfg.
func NewHandler(cfg *config.Config, repo repositories.SubmissionRepository, logger *slog.Logger) http.Handler {
	opts := routes.Options{
		Service:     services.NewSubmissionService(repo, cfg.ServerRule()),
		Logger:      logger,
		CorsOrigins: cfg.CorsOrigins,
		AccessLog:   true,
		LogLevel:    slog.LevelInfo,
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		opts.LogLevel = slog.LevelDebug
	}
	if cfg.MetricsEnabled {
		opts.Metrics = metrics.New()
	}
	return routes.SetupRoutes(opts)
}

// RunServer opens the configured store and serves the API on
// cfg.ListenAddr until ctx is cancelled.
func RunServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo, err := database.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", cfg.DatabaseDriver, err)
	}
	defer repo.Close()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}

	return Serve(ctx, listener, cfg, NewHandler(cfg, repo, logger), logger)
}

// Serve runs handler on listener until ctx is cancelled, then drains
// in-flight requests within the configured shutdown timeout.
func Serve(ctx context.Context, listener net.Listener, cfg *config.Config, handler http.Handler, logger *slog.Logger) error {
	timeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		listener.Close()
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", listener.Addr().String(), "driver", cfg.DatabaseDriver)
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server", "timeout", timeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
