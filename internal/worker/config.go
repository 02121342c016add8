// Package worker runs background imagery jobs delivered over Pub/Sub.
package worker

import (
	"time"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

// MaxRefreshDays caps how many recent dates one refresh may resolve.
const MaxRefreshDays = 31

// RefreshConfig holds configuration for the imagery refresh job.
type RefreshConfig struct {
	// Days is how many dates, ending today, are resolved per run.
	// Default: 1
	Days int

	// Lookback is passed to every resolution; 0 uses the resolver default.
	Lookback int

	// Concurrency is the number of dates resolved in parallel.
	// Each resolution is itself sequential.
	// Default: 2
	Concurrency int

	// Timeout bounds each resolution.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Days:        1,
		Concurrency: 2,
		Timeout:     2 * time.Minute,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	d := DefaultRefreshConfig()
	if c.Days <= 0 {
		c.Days = d.Days
	}
	c.Days = min(c.Days, MaxRefreshDays)
	if c.Lookback < 0 || c.Lookback > availability.MaxLookback {
		c.Lookback = 0
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// Dates returns the dates a run starting on today resolves, newest first.
func (c RefreshConfig) Dates(today imagery.Date) []imagery.Date {
	c = c.withDefaults()
	out := make([]imagery.Date, c.Days)
	for i := range out {
		out[i] = today.MinusDays(i)
	}
	return out
}
