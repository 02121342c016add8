package availability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/imagery/gibs"
)

// An upstream outage must not leak into later resolutions: once tiles are
// served again the next Resolve reaches the server and finds them.
func TestCoordinator_RecoversAfterUpstreamOutage(t *testing.T) {
	var (
		healthy atomic.Bool
		hits    atomic.Int32
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sources, err := imagery.NewCatalog(server.URL).Select([]imagery.SourceID{
		imagery.SourceTrueColor, imagery.SourcePrecipitation,
	})
	require.NoError(t, err)

	c, err := availability.NewCoordinator(availability.CoordinatorConfig{
		Checker: gibs.NewClient(gibs.ClientConfig{Logger: zerolog.Nop(), Timeout: time.Second}),
		Sources: sources,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	requested := imagery.MustParseDate("2025-06-15")

	first, err := c.Resolve(context.Background(), requested, 7)
	require.NoError(t, err)
	assert.True(t, first.Exhausted())
	assert.Equal(t, 14, first.TotalChecks())
	assert.Equal(t, int32(first.TotalChecks()), hits.Load(), "every counted check reached the server")

	healthy.Store(true)
	hits.Store(0)

	second, err := c.Resolve(context.Background(), requested, 7)
	require.NoError(t, err)
	assert.False(t, second.Exhausted())
	assert.Equal(t, int32(2), hits.Load())
	for _, r := range second.PerSource() {
		assert.Equal(t, availability.OutcomeExact, r.Outcome, r.Source)
		assert.Equal(t, "2025-06-15", r.Resolved.String())
	}
}
