// Package main provides the entry point for the integrations Temporal worker.
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
	"github.com/rs/zerolog"

	"github.com/helixir/integrations-worker/internal/browser"
	"github.com/helixir/integrations-worker/internal/browserbase"
	"github.com/helixir/integrations-worker/internal/config"
	"github.com/helixir/integrations-worker/internal/faults"
	"github.com/helixir/integrations-worker/internal/llm"
	"github.com/helixir/integrations-worker/internal/mail"
	"github.com/helixir/integrations-worker/internal/observability"
	"github.com/helixir/integrations-worker/internal/pdf"
	"github.com/helixir/integrations-worker/internal/storage"
	"github.com/helixir/integrations-worker/internal/temporal"
	"github.com/helixir/integrations-worker/internal/temporal/activities"
	"github.com/helixir/integrations-worker/internal/temporal/workflows"
)

// sessionLifetime caps how long an abandoned remote browser session lives.
const sessionLifetime = 10 * time.Minute

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
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("integrations worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("integrations")

	// Create Temporal client.
	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, observability.NewTemporalLogger(logger))
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	workerCfg := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	if cfg.Temporal.MaxConcurrentActivities > 0 {
		workerCfg.MaxConcurrentActivityExecutionSize = cfg.Temporal.MaxConcurrentActivities
	}
	manager, err := temporal.NewWorkerManager(temporalClient, workerCfg, logger)
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	browserActivities, pageActivities, digestActivities, documentActivities, err := buildActivities(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}

	workflows.Register(manager)
	manager.RegisterActivity(browserActivities)
	manager.RegisterActivity(pageActivities)
	manager.RegisterActivity(digestActivities)
	manager.RegisterActivity(documentActivities)

	// Serve Prometheus metrics on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.WorkerPort),
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	logger.Info().
		Str("task_queue", workerCfg.TaskQueue).
		Int("max_concurrent_activities", workerCfg.MaxConcurrentActivityExecutionSize).
		Msg("integrations worker is ready")

	runErr := manager.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	if runErr != nil {
		return fmt.Errorf("worker: %w", runErr)
	}
	logger.Info().Msg("integrations worker shutdown complete")
	return nil
}

// buildActivities wires the external clients into the activity structs.
// Object storage and mail are optional; activities that need them fail with
// a service unavailable error when they are not configured.
func buildActivities(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) (
	*activities.BrowserActivities,
	*activities.PageActivities,
	*activities.DigestActivities,
	*activities.DocumentActivities,
	error,
) {
	driver := browser.NewDriver(browser.Config{
		Headless:      cfg.Browser.Headless,
		ExecPath:      cfg.Browser.ExecPath,
		ActionTimeout: cfg.Browser.ActionTimeout,
		WindowWidth:   cfg.Browserbase.ViewportWidth,
		WindowHeight:  cfg.Browserbase.ViewportHeight,
	}, logger)
	local := browser.LocalOpener{Launcher: driver}

	provider, err := browserbase.NewClient(browserbase.Config{
		APIKey:         cfg.Browserbase.APIKey,
		ProjectID:      cfg.Browserbase.ProjectID,
		BaseURL:        cfg.Browserbase.BaseURL,
		ConnectURL:     cfg.Browserbase.ConnectURL,
		Timeout:        cfg.Browserbase.Timeout,
		RateLimit:      cfg.Browserbase.RateLimit,
		ViewportWidth:  cfg.Browserbase.ViewportWidth,
		ViewportHeight: cfg.Browserbase.ViewportHeight,
	}, metrics)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create browserbase client: %w", err)
	}
	sessions := browser.NewSessionManager(provider, driver, sessionLifetime, metrics, logger)

	llmClient, err := llm.New(llm.FactoryConfig{
		Provider:    cfg.LLM.Provider,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		OpenAI: llm.ProviderConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.ProviderConfig{
			APIKey:  cfg.LLM.Anthropic.APIKey,
			Model:   cfg.LLM.Anthropic.Model,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
		},
	}, llm.WithMetrics(metrics))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create llm client: %w", err)
	}
	logger.Info().Str("provider", cfg.LLM.Provider).Msg("llm client initialized")

	injector := faults.Disabled()
	if cfg.Faults.Enabled {
		injector = faults.New(cfg.Faults.Rate, faults.WithMetrics(metrics))
		logger.Info().Float64("rate", cfg.Faults.Rate).Msg("network fault simulation enabled")
	}

	var uploader activities.Uploader
	s3Uploader, err := storage.New(ctx, storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
	}, metrics)
	switch {
	case errors.Is(err, storage.ErrMissingBucket):
		logger.Warn().Msg("object storage not configured, pdf uploads are disabled")
	case err != nil:
		return nil, nil, nil, nil, fmt.Errorf("create storage uploader: %w", err)
	default:
		uploader = s3Uploader
		logger.Info().Str("bucket", cfg.Storage.Bucket).Msg("object storage configured")
	}

	var sender mail.Sender
	gmailSender, err := mail.NewGmailSender(ctx, cfg.Mail.CredentialsFile, cfg.Mail.TokenFile, metrics, logger)
	switch {
	case err == nil:
		sender = gmailSender
	case cfg.Digest.Enabled:
		return nil, nil, nil, nil, fmt.Errorf("create gmail sender: %w", err)
	default:
		logger.Warn().Err(err).Msg("gmail sender not configured, digest emails are disabled")
	}

	browserActivities := activities.NewBrowserActivities(sessions, llmClient, injector, activities.SearchConfig{
		PageURL:       cfg.Search.PageURL,
		InputSelector: cfg.Search.InputSelector,
		SettleDelay:   cfg.Search.SettleDelay,
		ResultLimit:   cfg.Search.ResultLimit,
	}, metrics)

	pageActivities := activities.NewPageActivities(local, sessions, uploader, metrics)

	digestActivities := activities.NewDigestActivities(sessions, llmClient, sender, activities.DigestConfig{
		SourceURL:    cfg.Digest.SourceURL,
		ArticleCount: cfg.Digest.ArticleCount,
		ContentLimit: cfg.Digest.ContentLimit,
		From:         cfg.Mail.From,
		To:           cfg.Mail.To,
		Subject:      cfg.Digest.Subject,
	}, metrics)

	documentActivities := activities.NewDocumentActivities(
		pdf.NewGenerator(),
		pdf.NewDownloader(pdf.DownloaderConfig{
			Timeout: cfg.PDF.DownloadTimeout,
			MaxSize: cfg.PDF.MaxSize,
		}),
		pdf.NewConverter(cfg.PDF.MutoolPath, logger, pdf.WithTempDir(cfg.PDF.TempDir)),
		uploader,
		metrics,
	)

	return browserActivities, pageActivities, digestActivities, documentActivities, nil
}
