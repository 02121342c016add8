package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/imagery/gibs"
)

// ErrTileServerUnreachable is returned when no probe reached the tile server.
var ErrTileServerUnreachable = errors.New("tile server unreachable")

// TileChecker runs a single detailed availability check.
type TileChecker interface {
	Check(ctx context.Context, source imagery.Source, date imagery.Date) gibs.Check
}

// HealthCheck probes each source once for the day before today.
type HealthCheck struct {
	checker TileChecker
	sources []imagery.Source
	today   func() imagery.Date
	logger  zerolog.Logger
}

// NewHealthCheck creates a health check over sources.
func NewHealthCheck(checker TileChecker, sources []imagery.Source, today func() imagery.Date, logger zerolog.Logger) *HealthCheck {
	return &HealthCheck{checker: checker, sources: sources, today: today, logger: logger}
}

// Run fails only if every probe failed to get an answer from the server.
// A missing tile still proves the server is up.
func (h *HealthCheck) Run(ctx context.Context) ([]gibs.Check, error) {
	date := h.today().MinusDays(1)
	checks := make([]gibs.Check, 0, len(h.sources))
	answered := 0
	for _, s := range h.sources {
		c := h.checker.Check(ctx, s, date)
		checks = append(checks, c)
		if reached(c.Reason) {
			answered++
		}
		h.logger.Debug().Str("check", c.String()).Dur("duration", c.Duration).Msg("health probe")
	}
	if len(checks) > 0 && answered == 0 {
		return checks, fmt.Errorf("%w: %d probes failed", ErrTileServerUnreachable, len(checks))
	}
	return checks, nil
}

func reached(r gibs.Reason) bool {
	switch r {
	case gibs.ReasonTransport, gibs.ReasonTimeout, gibs.ReasonCircuitOpen:
		return false
	default:
		return true
	}
}
