package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

// TriggerWorkerRefresh marks history entries written by the refresh job.
const TriggerWorkerRefresh = "worker-refresh"

// Resolver resolves imagery dates.
type Resolver interface {
	Resolve(ctx context.Context, requested imagery.Date, lookback int) (*availability.Resolution, error)
	Today() imagery.Date
}

// Recorder stores completed resolutions.
type Recorder interface {
	RecordResolution(ctx context.Context, trigger string, res *availability.Resolution) error
}

// RefreshJob resolves recent dates ahead of user traffic and records the
// outcomes, so operators can see when upstream publication lags.
type RefreshJob struct {
	config   RefreshConfig
	resolver Resolver
	recorder Recorder
	logger   zerolog.Logger

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns   int64
	Resolutions int64
	Failed      int64
	Exhausted   int64
	Fallbacks   int64
	Checks      int64

	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config   RefreshConfig
	Resolver Resolver

	// Recorder receives every completed resolution (optional).
	Recorder Recorder

	Logger zerolog.Logger
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:   cfg.Config.withDefaults(),
		resolver: cfg.Resolver,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		metrics:  &RefreshMetrics{},
	}
}

// Config returns the effective configuration.
func (j *RefreshJob) Config() RefreshConfig {
	return j.config
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Dates holds every date attempted, newest first.
	Dates      []imagery.Date
	Successful int
	Failed     int

	// Exhausted counts resolutions where at least one source found no tiles.
	Exhausted int
	FellBack  int
	Checks    int
	Errors    []RefreshError
}

// RefreshError represents a failed resolution.
type RefreshError struct {
	Date  imagery.Date
	Error string
}

// Run resolves the configured dates using cfg overrides where non-zero.
func (j *RefreshJob) Run(ctx context.Context, override RefreshConfig) *RefreshResult {
	cfg := j.config
	if override.Days > 0 {
		cfg.Days = override.Days
	}
	if override.Lookback > 0 {
		cfg.Lookback = override.Lookback
	}
	cfg = cfg.withDefaults()

	startTime := time.Now()
	dates := cfg.Dates(j.resolver.Today())
	result := &RefreshResult{StartTime: startTime, Dates: dates}

	j.logger.Info().
		Int("days", len(dates)).
		Int("lookback", cfg.Lookback).
		Int("concurrency", cfg.Concurrency).
		Msg("starting imagery refresh job")

	datesChan := make(chan imagery.Date, len(dates))
	resultsChan := make(chan dateResult, len(dates))

	var wg sync.WaitGroup
	for range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, cfg, datesChan, resultsChan)
		}()
	}

	for _, d := range dates {
		datesChan <- d
	}
	close(datesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for dr := range resultsChan {
		if dr.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{Date: dr.date, Error: dr.err.Error()})
			continue
		}
		result.Successful++
		result.Checks += dr.res.TotalChecks()
		if dr.res.Exhausted() {
			result.Exhausted++
		}
		if dr.res.FellBack() {
			result.FellBack++
		}
	}

	// Dates skipped after cancellation count as failures.
	if skipped := len(dates) - result.Successful - result.Failed; skipped > 0 {
		result.Failed += skipped
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("exhausted", result.Exhausted).
		Int("checks", result.Checks).
		Msg("imagery refresh job completed")

	return result
}

type dateResult struct {
	date imagery.Date
	res  *availability.Resolution
	err  error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, cfg RefreshConfig, dates <-chan imagery.Date, results chan<- dateResult) {
	for d := range dates {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshDate(ctx, cfg, d)
		}
	}
}

func (j *RefreshJob) refreshDate(ctx context.Context, cfg RefreshConfig, d imagery.Date) dateResult {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	res, err := j.resolver.Resolve(ctx, d, cfg.Lookback)
	if err != nil {
		j.logger.Warn().Err(err).Str("date", d.String()).Msg("refresh resolution failed")
		return dateResult{date: d, err: fmt.Errorf("resolve %s: %w", d, err)}
	}

	if j.recorder != nil {
		if err := j.recorder.RecordResolution(ctx, TriggerWorkerRefresh, res); err != nil {
			j.logger.Warn().Err(err).Str("date", d.String()).Msg("failed to record resolution")
		}
	}
	if res.Exhausted() {
		j.logger.Warn().Str("date", d.String()).Str("status", res.Status()).Msg("imagery not yet published")
	}
	return dateResult{date: d, res: res}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.Resolutions += int64(result.Successful)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.Exhausted += int64(result.Exhausted)
	j.metrics.Fallbacks += int64(result.FellBack)
	j.metrics.Checks += int64(result.Checks)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		Resolutions:         j.metrics.Resolutions,
		Failed:              j.metrics.Failed,
		Exhausted:           j.metrics.Exhausted,
		Fallbacks:           j.metrics.Fallbacks,
		Checks:              j.metrics.Checks,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_runs":            m.TotalRuns,
		"resolutions":           m.Resolutions,
		"failed":                m.Failed,
		"exhausted":             m.Exhausted,
		"fallbacks":             m.Fallbacks,
		"checks":                m.Checks,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
