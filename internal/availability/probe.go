package availability

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/imagery"
)

// Checker performs one existence check for a source on a date.
// Implementations must fold every failure into false.
type Checker interface {
	CheckAvailable(ctx context.Context, source imagery.Source, date imagery.Date) bool
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, source imagery.Source, date imagery.Date) bool

// CheckAvailable calls f.
func (f CheckerFunc) CheckAvailable(ctx context.Context, source imagery.Source, date imagery.Date) bool {
	return f(ctx, source, date)
}

// SendingChecker is a Checker that also reports whether the check reached
// upstream. Checks that were never sent, such as ones rejected locally by a
// circuit breaker, do not count toward Result.Checks.
type SendingChecker interface {
	Checker
	CheckSent(ctx context.Context, source imagery.Source, date imagery.Date) (available, sent bool)
}

// Probe searches backward day by day for the first date with tiles.
type Probe struct {
	checker Checker
	logger  zerolog.Logger
}

// NewProbe creates a probe over checker.
func NewProbe(checker Checker, logger zerolog.Logger) *Probe {
	return &Probe{checker: checker, logger: logger}
}

// FindAvailableDate checks start, start-1, ... start-(lookback-1) in order and
// returns on the first available date. Checks are sequential and at most
// lookback are issued; Result.Checks counts only those that were sent. If none succeed the result is OutcomeExhausted with
// Resolved == start and a nil FallbackDays.
//
// A cancelled ctx stops the scan early; the caller must inspect ctx.Err()
// before trusting an exhausted result.
func (p *Probe) FindAvailableDate(ctx context.Context, source imagery.Source, start imagery.Date, lookback int) Result {
	checks := 0
	for i := 0; i < lookback; i++ {
		if ctx.Err() != nil {
			break
		}

		candidate := start.MinusDays(i)
		available, sent := p.check(ctx, source, candidate)
		if sent {
			checks++
		}
		if !available {
			continue
		}

		if i > 0 {
			p.logger.Info().
				Str("source", string(source.ID)).
				Str("requested", start.String()).
				Str("resolved", candidate.String()).
				Int("fallback_days", i).
				Msg("imagery fallback to earlier date")
		}
		return found(source, start, i, lookback, checks)
	}

	p.logger.Warn().
		Str("source", string(source.ID)).
		Str("requested", start.String()).
		Int("lookback", lookback).
		Int("checks", checks).
		Msg("no imagery date found within lookback")

	return exhausted(source, start, lookback, checks)
}

func (p *Probe) check(ctx context.Context, source imagery.Source, date imagery.Date) (available, sent bool) {
	if sc, ok := p.checker.(SendingChecker); ok {
		return sc.CheckSent(ctx, source, date)
	}
	return p.checker.CheckAvailable(ctx, source, date), true
}
