package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

func newCoordinator(t *testing.T, checker availability.Checker, ids ...imagery.SourceID) *availability.Coordinator {
	t.Helper()
	if len(ids) == 0 {
		ids = []imagery.SourceID{imagery.SourceTrueColor, imagery.SourcePrecipitation}
	}
	sources, err := imagery.NewCatalog("").Select(ids)
	require.NoError(t, err)

	metrics, err := availability.NewMetrics()
	require.NoError(t, err)

	c, err := availability.NewCoordinator(availability.CoordinatorConfig{
		Checker: checker,
		Sources: sources,
		Metrics: metrics,
		Logger:  zerolog.Nop(),
		Clock:   func() time.Time { return time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return c
}

func TestCoordinator_ResolvesSourcesIndependently(t *testing.T) {
	checker := newFakeChecker()
	checker.allow(imagery.SourceTrueColor, "2025-06-12")
	checker.allow(imagery.SourcePrecipitation, "2025-06-15")
	c := newCoordinator(t, checker)

	res, err := c.Resolve(context.Background(), imagery.MustParseDate("2025-06-15"), 7)
	require.NoError(t, err)

	modis, ok := res.Get(imagery.SourceTrueColor)
	require.True(t, ok)
	assert.Equal(t, "2025-06-12", modis.Resolved.String())
	assert.Equal(t, 3, *modis.FallbackDays)

	imerg, ok := res.Get(imagery.SourcePrecipitation)
	require.True(t, ok)
	assert.Equal(t, availability.OutcomeExact, imerg.Outcome)
	assert.Equal(t, 0, *imerg.FallbackDays)

	assert.True(t, res.FellBack())
	assert.False(t, res.Exhausted())
	assert.Equal(t, 5, res.TotalChecks())
	assert.Len(t, res.PerSource(), 2)
	assert.Contains(t, res.Status(), "using 2025-06-12")
	assert.Contains(t, res.Status(), "fell back 3 days")
}

func TestCoordinator_ExhaustedScenario(t *testing.T) {
	checker := newFakeChecker()
	c := newCoordinator(t, checker, imagery.SourceTrueColor)

	res, err := c.Resolve(context.Background(), imagery.MustParseDate("2025-06-15"), 7)
	require.NoError(t, err)

	modis, ok := res.Get(imagery.SourceTrueColor)
	require.True(t, ok)
	assert.Equal(t, "2025-06-15", modis.Resolved.String())
	assert.Nil(t, modis.FallbackDays)
	assert.True(t, res.Exhausted())
	assert.Contains(t, res.Status(), "no imagery confirmed in the 7 days up to 2025-06-15")
}

func TestCoordinator_DoesNotMemoize(t *testing.T) {
	checker := newFakeChecker()
	checker.allow(imagery.SourceTrueColor, "2025-06-15")
	c := newCoordinator(t, checker, imagery.SourceTrueColor)

	for i := 0; i < 3; i++ {
		_, err := c.Resolve(context.Background(), imagery.MustParseDate("2025-06-15"), 7)
		require.NoError(t, err)
	}
	assert.Len(t, checker.callsFor(imagery.SourceTrueColor), 3, "every resolution probes again")
}

func TestCoordinator_DefaultLookback(t *testing.T) {
	checker := newFakeChecker()
	c := newCoordinator(t, checker, imagery.SourcePrecipitation)
	assert.Equal(t, 7, c.DefaultLookback())

	res, err := c.Resolve(context.Background(), imagery.MustParseDate("2025-01-03"), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Lookback)
	assert.Len(t, checker.callsFor(imagery.SourcePrecipitation), 7)
}

func TestCoordinator_InvalidArguments(t *testing.T) {
	c := newCoordinator(t, newFakeChecker())

	_, err := c.Resolve(context.Background(), imagery.MustParseDate("2025-06-15"), -1)
	assert.ErrorIs(t, err, availability.ErrInvalidLookback)

	_, err = c.Resolve(context.Background(), imagery.MustParseDate("2025-06-15"), availability.MaxLookback+1)
	assert.ErrorIs(t, err, availability.ErrInvalidLookback)

	_, err = c.Resolve(context.Background(), imagery.Date{}, 7)
	assert.ErrorIs(t, err, imagery.ErrInvalidDate)
}

func TestCoordinator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newCoordinator(t, newFakeChecker())
	_, err := c.Resolve(ctx, imagery.MustParseDate("2025-06-15"), 7)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCoordinator_ConfigErrors(t *testing.T) {
	_, err := availability.NewCoordinator(availability.CoordinatorConfig{})
	assert.ErrorIs(t, err, availability.ErrNoChecker)

	_, err = availability.NewCoordinator(availability.CoordinatorConfig{Checker: newFakeChecker()})
	assert.ErrorIs(t, err, availability.ErrNoSources)

	sources := imagery.NewCatalog("").All()
	_, err = availability.NewCoordinator(availability.CoordinatorConfig{
		Checker:         newFakeChecker(),
		Sources:         sources,
		DefaultLookback: 90,
	})
	assert.ErrorIs(t, err, availability.ErrInvalidLookback)
}

func TestCoordinator_Today(t *testing.T) {
	c := newCoordinator(t, newFakeChecker())
	assert.Equal(t, "2025-06-15", c.Today().String())
}
