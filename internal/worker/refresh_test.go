package worker_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/history"
	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/worker"
)

var today = imagery.MustParseDate("2025-06-15")

// testResolver wraps a coordinator whose true-color imagery exists only on
// or before a given date. failOn makes Resolve fail for that date.
type testResolver struct {
	coordinator *availability.Coordinator

	mu     sync.Mutex
	calls  []string
	failOn string
}

func newTestResolver(t *testing.T, last string) *testResolver {
	t.Helper()
	lastDate := imagery.MustParseDate(last)
	checker := availability.CheckerFunc(func(_ context.Context, _ imagery.Source, d imagery.Date) bool {
		return !lastDate.Before(d)
	})
	sources, err := imagery.NewCatalog("").Select([]imagery.SourceID{imagery.SourceTrueColor})
	require.NoError(t, err)
	c, err := availability.NewCoordinator(availability.CoordinatorConfig{
		Checker: checker,
		Sources: sources,
		Logger:  zerolog.Nop(),
		Clock:   func() time.Time { return today.Time().Add(10 * time.Hour) },
	})
	require.NoError(t, err)
	return &testResolver{coordinator: c}
}

func (r *testResolver) Today() imagery.Date { return r.coordinator.Today() }

func (r *testResolver) Resolve(ctx context.Context, d imagery.Date, lookback int) (*availability.Resolution, error) {
	r.mu.Lock()
	r.calls = append(r.calls, d.String())
	fail := r.failOn == d.String()
	r.mu.Unlock()
	if fail {
		return nil, errors.New("boom")
	}
	return r.coordinator.Resolve(ctx, d, lookback)
}

func (r *testResolver) resolved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.calls...)
	sort.Strings(out)
	return out
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 1, cfg.Days)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Zero(t, cfg.Lookback)
}

func TestRefreshConfig_Dates(t *testing.T) {
	dates := worker.RefreshConfig{Days: 3}.Dates(imagery.MustParseDate("2024-03-01"))
	require.Len(t, dates, 3)
	assert.Equal(t, "2024-03-01", dates[0].String())
	assert.Equal(t, "2024-02-29", dates[1].String())
	assert.Equal(t, "2024-02-28", dates[2].String())

	assert.Len(t, worker.RefreshConfig{}.Dates(today), 1)
	assert.Len(t, worker.RefreshConfig{Days: 100}.Dates(today), worker.MaxRefreshDays)
}

func TestRefreshJob_Run(t *testing.T) {
	resolver := newTestResolver(t, "2025-06-13")
	hist := history.NewService(history.ServiceConfig{Logger: zerolog.Nop()})

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Days: 4, Lookback: 3, Concurrency: 3},
		Resolver: resolver,
		Recorder: hist,
		Logger:   zerolog.Nop(),
	})

	result := job.Run(context.Background(), worker.RefreshConfig{})

	assert.Equal(t, 4, result.Successful)
	assert.Zero(t, result.Failed)
	assert.Equal(t, []string{"2025-06-12", "2025-06-13", "2025-06-14", "2025-06-15"}, resolver.resolved())

	// 06-15 falls back 2 days, 06-14 falls back 1, 06-13 and 06-12 are exact.
	assert.Equal(t, 2, result.FellBack)
	assert.Zero(t, result.Exhausted)
	assert.Equal(t, 3+2+1+1, result.Checks)

	entries, err := hist.List(context.Background(), history.ListOptions{Trigger: worker.TriggerWorkerRefresh})
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, 3, e.Lookback)
	}
}

func TestRefreshJob_RunOverrides(t *testing.T) {
	resolver := newTestResolver(t, "2025-06-10")
	job := worker.NewRefreshJob(worker.RefreshJobConfig{Resolver: resolver, Logger: zerolog.Nop()})

	result := job.Run(context.Background(), worker.RefreshConfig{Days: 2, Lookback: 2})

	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 2, result.Exhausted, "nothing published within 2 days of 06-15 or 06-14")
	assert.Equal(t, 4, result.Checks)
}

func TestRefreshJob_ErrorCollection(t *testing.T) {
	resolver := newTestResolver(t, "2025-06-15")
	resolver.failOn = "2025-06-14"

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Days: 3},
		Resolver: resolver,
		Logger:   zerolog.Nop(),
	})
	result := job.Run(context.Background(), worker.RefreshConfig{})

	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "2025-06-14", result.Errors[0].Date.String())
	assert.Contains(t, result.Errors[0].Error, "boom")
}

func TestRefreshJob_ContextCancellation(t *testing.T) {
	resolver := newTestResolver(t, "2025-06-15")
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Days: 5, Concurrency: 1},
		Resolver: resolver,
		Logger:   zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx, worker.RefreshConfig{})
	assert.Equal(t, 5, result.Successful+result.Failed)
	assert.Zero(t, result.Successful)
}

func TestRefreshJob_Metrics(t *testing.T) {
	resolver := newTestResolver(t, "2025-06-14")
	job := worker.NewRefreshJob(worker.RefreshJobConfig{Resolver: resolver, Logger: zerolog.Nop()})

	job.Run(context.Background(), worker.RefreshConfig{})
	job.Run(context.Background(), worker.RefreshConfig{})

	m := job.GetMetrics()
	assert.EqualValues(t, 2, m.TotalRuns)
	assert.EqualValues(t, 2, m.Resolutions)
	assert.EqualValues(t, 2, m.Fallbacks)
	assert.EqualValues(t, 4, m.Checks)
	assert.False(t, m.LastRefreshAt.IsZero())

	snap := job.MetricsSnapshot()
	assert.EqualValues(t, 2, snap["total_runs"])
	assert.Contains(t, snap, "last_refresh_duration")
}
