// Package api provides the HTTP API of the imagery service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/api/handler"
	"github.com/elninowatch/elninowatch/internal/api/middleware"
	"github.com/elninowatch/elninowatch/internal/auth"
	"github.com/elninowatch/elninowatch/internal/history"
	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/mapsession"
	"github.com/elninowatch/elninowatch/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// RequireTLS rejects plain-HTTP requests that did not pass a TLS proxy.
	RequireTLS bool

	Resolver handler.DateResolver
	Catalog  *imagery.Catalog
	Checker  handler.TileChecker
	Sessions *mapsession.Store
	History  *history.Service

	// Registry reports upstream circuit state on /v1/ops/status (optional).
	Registry *resilience.Registry

	// Checks gate /v1/ops/ready (optional).
	Checks []handler.DependencyCheck

	// Tokens authenticates /v1/admin; admin routes are not mounted when nil.
	Tokens middleware.TokenValidator
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "elninowatch-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	var recorder handler.ResolutionRecorder
	if cfg.History != nil {
		recorder = cfg.History
	}

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Checks...)
	imageryHandler := handler.NewImageryHandler(handler.ImageryHandlerConfig{
		Resolver: cfg.Resolver,
		Catalog:  cfg.Catalog,
		Checker:  cfg.Checker,
		Recorder: recorder,
		Logger:   cfg.Logger,
	})
	sessionHandler := handler.NewSessionHandler(cfg.Sessions, cfg.Logger)

	resolveRateLimit := middleware.RateLimitByIP(middleware.ResolveRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/imagery", func(r chi.Router) {
			r.With(standardRateLimit).Get("/sources", imageryHandler.ListSources)
			r.With(resolveRateLimit).Get("/resolve", imageryHandler.Resolve)
			r.With(resolveRateLimit).Get("/check", imageryHandler.Check)
		})

		r.Route("/sessions", func(r chi.Router) {
			// Creating a session runs a resolution.
			r.With(resolveRateLimit).Post("/", sessionHandler.CreateSession)
			r.Route("/{"+middleware.SessionIDParam+"}", func(r chi.Router) {
				r.Use(middleware.RateLimitBySession(middleware.SessionRateLimit))
				r.Get("/", sessionHandler.GetSession)
				r.Delete("/", sessionHandler.DeleteSession)
				r.With(middleware.RequireJSON).Post("/events", sessionHandler.PostEvent)
			})
		})

		if cfg.Tokens != nil && cfg.History != nil {
			adminHandler := handler.NewAdminHandler(cfg.History, cfg.Logger)
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(cfg.Tokens, auth.RoleAdmin))
				r.Use(standardRateLimit)
				r.Get("/resolutions", adminHandler.ListResolutions)
				r.Get("/resolutions/{entryId}", adminHandler.GetResolution)
			})
		}
	})

	return r
}
