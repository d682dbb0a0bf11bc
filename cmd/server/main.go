// Package main provides the entry point for the integrations HTTP API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/integrations-worker/internal/config"
	"github.com/helixir/integrations-worker/internal/observability"
	httpserver "github.com/helixir/integrations-worker/internal/server/http"
	"github.com/helixir/integrations-worker/internal/temporal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("integrations server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create Temporal client.
	clientCfg := temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	}
	temporalClient, err := temporal.NewClient(clientCfg, observability.NewTemporalLogger(logger))
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	workflowClient := temporal.NewWorkflowClient(temporalClient, clientCfg)
	defer workflowClient.Close()

	// Register the digest cron schedule.
	if cfg.Digest.Enabled {
		if err := workflowClient.EnsureSchedule(ctx, temporal.ScheduleSpec{
			ID:       cfg.Digest.ScheduleID,
			Cron:     cfg.Digest.Cron,
			Timezone: cfg.Digest.Timezone,
			Workflow: temporal.HackerNewsDigestWorkflowName,
			Args:     []interface{}{temporal.DigestRequest{}},
		}); err != nil {
			return fmt.Errorf("ensure digest schedule: %w", err)
		}
		logger.Info().
			Str("schedule_id", cfg.Digest.ScheduleID).
			Str("cron", cfg.Digest.Cron).
			Str("timezone", cfg.Digest.Timezone).
			Msg("digest schedule registered")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		WaitTimeout:     cfg.Server.WaitTimeout,
	}
	if cfg.Metrics.Enabled {
		httpCfg.MetricsPath = cfg.Metrics.Path
		httpCfg.MetricsHandler = promhttp.Handler()
	}

	httpSrv := httpserver.NewServer(httpCfg, workflowClient, logger)

	// Channel to collect server errors.
	errCh := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP REST API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if cfg.Metrics.Enabled {
		readyLog = readyLog.Str("metrics_path", cfg.Metrics.Path)
	}
	readyLog.Msg("integrations server is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down integrations server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("integrations server shutdown complete")
	return nil
}
