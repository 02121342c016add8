// Package main provides the entrypoint for the El Niño Watch API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/api"
	"github.com/elninowatch/elninowatch/internal/api/handler"
	"github.com/elninowatch/elninowatch/internal/api/middleware"
	"github.com/elninowatch/elninowatch/internal/auth"
	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/config"
	"github.com/elninowatch/elninowatch/internal/database"
	"github.com/elninowatch/elninowatch/internal/history"
	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/imagery/gibs"
	"github.com/elninowatch/elninowatch/internal/mapsession"
	"github.com/elninowatch/elninowatch/internal/provider/resilience"
	"github.com/elninowatch/elninowatch/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "elninowatch-api"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("api exited")
	}
}

func run(log zerolog.Logger) error {
	log.Info().Str("build_time", BuildTime).Msg("starting El Niño Watch API")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.IsProduction() {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}
	if cfg.Auth.JWTSigningKey == "" {
		log.Warn().Msg("using development JWT signing key - not secure for production")
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
	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
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

	catalog := imagery.NewCatalog(cfg.Imagery.BaseURL)
	sources, err := catalog.Select(cfg.SourceIDs())
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
	log.Info().
		Int("sources", len(sources)).
		Int("lookback", cfg.Imagery.LookbackDays).
		Str("base_url", cfg.Imagery.BaseURL).
		Msg("imagery coordinator initialized")

	var checks []handler.DependencyCheck
	repo, pool, err := historyRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		checks = append(checks, handler.DependencyCheck{Name: "database", Check: pool.Ping})
	}
	historySvc := history.NewService(history.ServiceConfig{Repository: repo, Logger: log})

	store, err := mapsession.NewStore(mapsession.StoreConfig{
		Resolver: coordinator,
		Catalog:  catalog,
		Recorder: historySvc,
		TTL:      cfg.Session.TTL,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	go store.Run(ctx, cfg.Session.SweepInterval)

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		RequireTLS:  cfg.App.RequireTLS,
		Resolver:    coordinator,
		Catalog:     catalog,
		Checker:     checker,
		Sessions:    store,
		History:     historySvc,
		Registry:    registry,
		Checks:      checks,
		Tokens:      auth.NewJWTService(auth.JWTConfig{SigningKey: cfg.SigningKey()}),
	})

	// WriteTimeout covers a full lookback of sequential probes per source.
	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Int("live_sessions", store.Len()).Msg("server stopped")
	return nil
}

// historyRepository opens the configured history backend. The pool is nil
// for the in-memory backend.
func historyRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (history.Repository, *pgxpool.Pool, error) {
	if cfg.History.Backend != config.HistoryPostgres {
		log.Info().Msg("using in-memory resolution history")
		return history.NewInMemoryRepository(0), nil, nil
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	repo := history.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("database connected")
	return repo, pool, nil
}
