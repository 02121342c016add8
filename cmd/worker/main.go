// Package main provides the entrypoint for the imagery refresh worker.
// It consumes jobs from Pub/Sub and exposes health endpoints for Cloud Run.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/api/handler"
	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/config"
	"github.com/elninowatch/elninowatch/internal/database"
	"github.com/elninowatch/elninowatch/internal/history"
	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/imagery/gibs"
	"github.com/elninowatch/elninowatch/internal/provider/resilience"
	"github.com/elninowatch/elninowatch/internal/telemetry"
	"github.com/elninowatch/elninowatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "elninowatch-worker"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("worker exited")
	}
}

func run(log zerolog.Logger) error {
	log.Info().Str("build_time", BuildTime).Msg("starting imagery refresh worker")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Logger:         &log,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	checkMetrics, err := gibs.NewMetrics()
	if err != nil {
		return err
	}
	resolveMetrics, err := availability.NewMetrics()
	if err != nil {
		return err
	}

	registry := resilience.NewRegistry()
	probeConfig := resilience.ProbeClientConfig(gibs.ProviderName, cfg.Imagery.CheckTimeout)
	probeConfig.Registry = registry
	probeConfig.UserAgent = serviceName + "/" + Version
	probeConfig.CircuitBreaker.OnStateChange = resilience.LogStateChange(log)

	sample := cfg.SampleTile()
	checker := gibs.NewClient(gibs.ClientConfig{
		SampleTile: &sample,
		HTTPClient: resilience.NewClient(probeConfig),
		Metrics:    checkMetrics,
		Logger:     log,
	})

	sources, err := imagery.NewCatalog(cfg.Imagery.BaseURL).Select(cfg.SourceIDs())
	if err != nil {
		return err
	}

	coordinator, err := availability.NewCoordinator(availability.CoordinatorConfig{
		Checker:         checker,
		Sources:         sources,
		DefaultLookback: cfg.Imagery.LookbackDays,
		Metrics:         resolveMetrics,
		Logger:          log,
	})
	if err != nil {
		return err
	}

	var (
		repo   history.Repository = history.NewInMemoryRepository(0)
		checks []handler.DependencyCheck
	)
	if cfg.History.Backend == config.HistoryPostgres {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		pgRepo := history.NewPostgresRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		repo = pgRepo
		checks = append(checks, handler.DependencyCheck{Name: "database", Check: pool.Ping})
	}
	historySvc := history.NewService(history.ServiceConfig{Repository: repo, Logger: log})

	refreshCfg := worker.DefaultRefreshConfig()
	refreshCfg.Days = cfg.Worker.RefreshDays
	refreshCfg.Concurrency = cfg.Worker.Concurrency

	refresh := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   refreshCfg,
		Resolver: coordinator,
		Recorder: historySvc,
		Logger:   log,
	})
	health := worker.NewHealthCheck(checker, sources, coordinator.Today, log)

	subscriber, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSub.ProjectID,
		SubscriptionName: cfg.PubSub.SubscriptionID,
		Processor:        worker.NewProcessor(refresh, health, log),
		Logger:           log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := subscriber.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	ops := handler.NewOpsHandler(Version, BuildTime, registry, checks...)
	mux := chi.NewRouter()
	mux.Get("/health", ops.HealthCheck)
	mux.Get("/ready", ops.ReadinessCheck)
	mux.Get("/status", ops.SystemStatus)

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
			stop()
		}
	}()

	log.Info().
		Str("project", cfg.PubSub.ProjectID).
		Str("subscription", cfg.PubSub.SubscriptionID).
		Int("refresh_days", refreshCfg.Days).
		Msg("worker started, waiting for messages")

	// Start blocks until ctx is cancelled.
	if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("subscriber stopped")
	}

	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Fields(refresh.MetricsSnapshot()).Msg("worker stopped")
	return nil
}
