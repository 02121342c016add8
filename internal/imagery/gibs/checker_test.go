package gibs_test

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

	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/imagery/gibs"
	"github.com/elninowatch/elninowatch/internal/provider/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*gibs.Client, imagery.Source) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	catalog := imagery.NewCatalog(server.URL)
	source, err := catalog.Get(imagery.SourceTrueColor)
	require.NoError(t, err)

	client := gibs.NewClient(gibs.ClientConfig{
		HTTPClient: resilience.NewClient(resilience.ProbeClientConfig("test", 500*time.Millisecond)),
		Logger:     zerolog.Nop(),
	})
	return client, source
}

func TestClient_Check_RequestShape(t *testing.T) {
	var gotMethod, gotPath string
	client, source := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
	})

	check := client.Check(context.Background(), source, imagery.MustParseDate("2025-06-12"))

	assert.True(t, check.Available)
	assert.Equal(t, gibs.ReasonAvailable, check.Reason)
	assert.Equal(t, http.MethodHead, gotMethod)
	assert.Equal(t, "/MODIS_Terra_CorrectedReflectance_TrueColor/default/2025-06-12/GoogleMapsCompatible_Level9/3/2/4.jpg", gotPath)
	assert.Equal(t, http.StatusOK, check.StatusCode)
	assert.Equal(t, imagery.SourceTrueColor, check.Source)
	assert.Positive(t, check.Duration)
}

func TestClient_Check_ContentTypes(t *testing.T) {
	tests := []struct {
		contentType string
		available   bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"application/octet-stream", true},
		{"", true},
		{"text/html", false},
		{"text/html; charset=utf-8", false},
		{"application/xml", false},
	}

	for _, tc := range tests {
		t.Run(tc.contentType, func(t *testing.T) {
			client, source := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				// An explicit empty value stops net/http from sniffing one.
				w.Header()["Content-Type"] = []string{tc.contentType}
				w.WriteHeader(http.StatusOK)
			})

			check := client.Check(context.Background(), source, imagery.MustParseDate("2025-06-15"))
			assert.Equal(t, tc.available, check.Available)
			if !tc.available {
				assert.Equal(t, gibs.ReasonBadContentType, check.Reason)
			}
		})
	}
}

func TestClient_Check_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client, source := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				w.WriteHeader(status)
			})

			check := client.Check(context.Background(), source, imagery.MustParseDate("2025-06-15"))
			assert.False(t, check.Available)
			assert.Equal(t, gibs.ReasonBadStatus, check.Reason)
			assert.Equal(t, status, check.StatusCode)
		})
	}
}

func TestClient_Check_Timeout(t *testing.T) {
	client, source := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	})

	start := time.Now()
	check := client.Check(context.Background(), source, imagery.MustParseDate("2025-06-15"))

	assert.False(t, check.Available)
	assert.Equal(t, gibs.ReasonTimeout, check.Reason)
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestClient_Check_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	source, err := imagery.NewCatalog(url).Get(imagery.SourcePrecipitation)
	require.NoError(t, err)

	client := gibs.NewClient(gibs.ClientConfig{Logger: zerolog.Nop(), Timeout: time.Second})
	assert.False(t, client.CheckAvailable(context.Background(), source, imagery.MustParseDate("2025-06-15")))
}

func TestClient_Check_SingleRequestPerCheck(t *testing.T) {
	var hits atomic.Int32
	client, source := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.False(t, client.CheckAvailable(context.Background(), source, imagery.MustParseDate("2025-06-15")))
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Check_DefaultClientKeepsSendingThroughOutage(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source, err := imagery.NewCatalog(server.URL).Get(imagery.SourceTrueColor)
	require.NoError(t, err)
	client := gibs.NewClient(gibs.ClientConfig{Logger: zerolog.Nop(), Timeout: time.Second})

	date := imagery.MustParseDate("2025-06-15")
	for i := range 3 * resilience.ProbeDegradedThreshold {
		available, sent := client.CheckSent(context.Background(), source, date.MinusDays(i))
		assert.False(t, available)
		assert.True(t, sent)
	}
	assert.Equal(t, int32(3*resilience.ProbeDegradedThreshold), hits.Load())
}

func TestClient_Check_CircuitOpenIsNotSent(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source, err := imagery.NewCatalog(server.URL).Get(imagery.SourceTrueColor)
	require.NoError(t, err)

	cfg := resilience.ProbeClientConfig("tripping", time.Second)
	cfg.CircuitBreaker.ReadyToTrip = resilience.ConsecutiveFailures(1)
	client := gibs.NewClient(gibs.ClientConfig{HTTPClient: resilience.NewClient(cfg), Logger: zerolog.Nop()})

	date := imagery.MustParseDate("2025-06-15")
	first := client.Check(context.Background(), source, date)
	assert.Equal(t, gibs.ReasonBadStatus, first.Reason)
	assert.True(t, first.Sent())

	second := client.Check(context.Background(), source, date)
	assert.Equal(t, gibs.ReasonCircuitOpen, second.Reason)
	assert.False(t, second.Sent())

	available, sent := client.CheckSent(context.Background(), source, date)
	assert.False(t, available)
	assert.False(t, sent)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_CustomSampleTile(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	source, err := imagery.NewCatalog(server.URL).Get(imagery.SourceSeaSurface)
	require.NoError(t, err)

	sample := imagery.TileCoord{Z: 2, X: 1, Y: 2}
	client := gibs.NewClient(gibs.ClientConfig{SampleTile: &sample, Logger: zerolog.Nop()})
	assert.Equal(t, sample, client.SampleTile())

	assert.True(t, client.CheckAvailable(context.Background(), source, imagery.MustParseDate("2024-02-29")))
	assert.Contains(t, gotPath, "/2024-02-29/GoogleMapsCompatible_Level6/2/2/1.png")
}

func TestIsTileContentType(t *testing.T) {
	assert.True(t, gibs.IsTileContentType("image/jpeg"))
	assert.True(t, gibs.IsTileContentType("Image/PNG"))
	assert.True(t, gibs.IsTileContentType(""))
	assert.True(t, gibs.IsTileContentType("application/octet-stream"))
	assert.False(t, gibs.IsTileContentType("text/html"))
	assert.False(t, gibs.IsTileContentType("application/json"))
}

func TestMetrics_RecordCheckNilSafe(t *testing.T) {
	var m *gibs.Metrics
	m.RecordCheck(context.Background(), imagery.SourceTrueColor, gibs.ReasonAvailable, time.Millisecond)

	m, err := gibs.NewMetrics()
	require.NoError(t, err)
	m.RecordCheck(context.Background(), imagery.SourceTrueColor, gibs.ReasonTimeout, time.Millisecond)
}
