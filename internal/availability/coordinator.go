package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/elninowatch/elninowatch/internal/imagery"
)

const tracerName = "github.com/elninowatch/elninowatch/internal/availability"

// CoordinatorConfig holds configuration for the date resolution coordinator.
type CoordinatorConfig struct {
	// Checker performs the per-date existence checks (required).
	Checker Checker

	// Sources are resolved independently, in order (required).
	Sources []imagery.Source

	// DefaultLookback is used when Resolve is called with lookback 0 (default: 7).
	DefaultLookback int

	// Metrics records resolution outcomes (optional).
	Metrics *Metrics

	// Logger for coordinator operations.
	Logger zerolog.Logger

	// Clock returns the current time (optional, for tests).
	Clock func() time.Time
}

// Coordinator resolves a requested date for every configured source.
// It keeps no state between calls; every resolution probes from scratch.
type Coordinator struct {
	probe           *Probe
	sources         []imagery.Source
	defaultLookback int
	metrics         *Metrics
	tracer          trace.Tracer
	logger          zerolog.Logger
	clock           func() time.Time
}

// NewCoordinator creates a coordinator. It fails only on malformed configuration.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Checker == nil {
		return nil, ErrNoChecker
	}
	if len(cfg.Sources) == 0 {
		return nil, ErrNoSources
	}

	lookback := cfg.DefaultLookback
	if lookback == 0 {
		lookback = 7
	}
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	sources := make([]imagery.Source, len(cfg.Sources))
	copy(sources, cfg.Sources)

	return &Coordinator{
		probe:           NewProbe(cfg.Checker, cfg.Logger),
		sources:         sources,
		defaultLookback: lookback,
		metrics:         cfg.Metrics,
		tracer:          otel.Tracer(tracerName),
		logger:          cfg.Logger,
		clock:           clock,
	}, nil
}

// Sources returns the configured sources in resolution order.
func (c *Coordinator) Sources() []imagery.Source {
	out := make([]imagery.Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// DefaultLookback returns the lookback used when none is requested.
func (c *Coordinator) DefaultLookback() int {
	return c.defaultLookback
}

// Today returns the current UTC date according to the coordinator clock.
func (c *Coordinator) Today() imagery.Date {
	return imagery.DateOf(c.clock())
}

// Resolve runs one backward search per source for requested.
// A lookback of 0 uses the default. Only invalid arguments and a cancelled
// ctx produce an error; unavailable imagery is reported in the results.
func (c *Coordinator) Resolve(ctx context.Context, requested imagery.Date, lookback int) (*Resolution, error) {
	if requested.IsZero() {
		return nil, fmt.Errorf("resolve: %w", imagery.ErrInvalidDate)
	}
	if lookback == 0 {
		lookback = c.defaultLookback
	}
	if err := validateLookback(lookback); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "availability.resolve",
		trace.WithAttributes(
			attribute.String("imagery.requested", requested.String()),
			attribute.Int("imagery.lookback", lookback),
		),
	)
	defer span.End()

	start := c.clock()
	resolution := &Resolution{
		Requested: requested,
		Lookback:  lookback,
		Results:   make([]Result, 0, len(c.sources)),
	}

	for _, source := range c.sources {
		result := c.probe.FindAvailableDate(ctx, source, requested, lookback)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", requested, err)
		}
		resolution.Results = append(resolution.Results, result)
		c.metrics.RecordResult(ctx, result)
	}

	resolution.ResolvedAt = c.clock()

	span.SetAttributes(
		attribute.Bool("imagery.exhausted", resolution.Exhausted()),
		attribute.Int("imagery.checks", resolution.TotalChecks()),
	)

	c.logger.Debug().
		Str("requested", requested.String()).
		Int("lookback", lookback).
		Int("checks", resolution.TotalChecks()).
		Dur("duration", resolution.ResolvedAt.Sub(start)).
		Bool("exhausted", resolution.Exhausted()).
		Msg("imagery dates resolved")

	return resolution, nil
}

func validateLookback(n int) error {
	if n < 1 || n > MaxLookback {
		return fmt.Errorf("%w: got %d", ErrInvalidLookback, n)
	}
	return nil
}
