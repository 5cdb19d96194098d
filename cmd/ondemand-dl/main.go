package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/ondemand-tools/ondemand-dl/internal/browser"
	"github.com/ondemand-tools/ondemand-dl/internal/client"
	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/ondemand-tools/ondemand-dl/internal/metrics"
	"github.com/ondemand-tools/ondemand-dl/internal/progress"
	"github.com/ondemand-tools/ondemand-dl/internal/scheduler"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger := config.GetLogger()
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	runID := uuid.NewString()
	config.SetLogger(config.GetLogger().With().Str("run", runID).Logger())
	logger := config.GetLogger()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Sentry")
		} else {
			sentry.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("run", runID)
				scope.SetTag("course", cfg.Course)
			})
		}
	}

	logger.Info().
		Str("course", cfg.Course).
		Str("output", cfg.Output).
		Int("concurrency", cfg.Concurrency).
		Bool("flatten", cfg.Flatten).
		Msg("Application started with configuration")

	// Start Prometheus metrics HTTP server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		stop()
		logger.Fatal().Err(err).Msg("Download failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := config.GetLogger()

	session, err := browser.Launch(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug().Err(err).Msg("Browser did not close cleanly")
		}
	}()

	course, err := session.OpenCourse(ctx, cfg)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	platform := client.NewClient(cfg, fs)
	defer platform.Close()

	renderer := progress.New(os.Stdout, cfg.Debug)
	s := scheduler.New(platform, fs, renderer, scheduler.OptionsFromConfig(cfg))

	summaries, err := s.RunCourse(ctx, course, session.Harvester())
	if err != nil {
		return err
	}

	var finished, skipped, failed int
	for _, summary := range summaries {
		finished += summary.Finished
		skipped += summary.Skipped
		failed += summary.Failed
	}
	logger.Info().
		Int("modules", len(summaries)).
		Int("finished", finished).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("Course complete")
	return nil
}
