package resilience_test

import (
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elninowatch/elninowatch/internal/provider/resilience"
)

var registryNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newRegisteredClient(t *testing.T, registry *resilience.Registry, name string) *resilience.Client {
	t.Helper()
	cfg := resilience.ProbeClientConfig(name, time.Second)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	client := newRegisteredClient(t, registry, "gibs")

	health := registry.GetHealth("gibs")
	require.NotNil(t, health)
	assert.Equal(t, "gibs", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
	assert.Equal(t, "gibs", client.Name())
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry(resilience.WithClock(func() time.Time { return registryNow }))
	_ = newRegisteredClient(t, registry, "gibs")

	registry.RecordSuccess("gibs")
	registry.RecordFailure("gibs", assert.AnError)

	health := registry.GetHealth("gibs")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.Equal(t, registryNow, *health.LastSuccessAt)
	assert.Equal(t, registryNow, *health.LastFailureAt)
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_FailureWithoutError(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = newRegisteredClient(t, registry, "gibs")

	registry.RecordFailure("gibs", nil)

	health := registry.GetHealth("gibs")
	require.NotNil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)
}

func TestRegistry_ReRegisterResetsHistory(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = newRegisteredClient(t, registry, "gibs")
	registry.RecordFailure("gibs", assert.AnError)

	_ = newRegisteredClient(t, registry, "gibs")

	health := registry.GetHealth("gibs")
	assert.Nil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.Nil(t, registry.GetHealth("nonexistent"))
	assert.NotPanics(t, func() {
		registry.RecordSuccess("nonexistent")
		registry.RecordFailure("nonexistent", assert.AnError)
	})
	assert.Empty(t, registry.GetAllHealth())
	assert.Empty(t, registry.Names())
}

func TestRegistry_GetAllHealthSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"gibs-c", "gibs-a", "gibs-b"} {
		_ = newRegisteredClient(t, registry, name)
	}

	healthList := registry.GetAllHealth()
	require.Len(t, healthList, 3)
	assert.Equal(t, "gibs-a", healthList[0].Name)
	assert.Equal(t, "gibs-b", healthList[1].Name)
	assert.Equal(t, "gibs-c", healthList[2].Name)
	assert.Equal(t, []string{"gibs-a", "gibs-b", "gibs-c"}, registry.Names())
}

func TestProviderHealth_Status(t *testing.T) {
	tests := []struct {
		name    string
		state   gobreaker.State
		failing uint32
		status  string
		healthy bool
	}{
		{"closed", gobreaker.StateClosed, 0, "OK", true},
		{"closed with a few failures", gobreaker.StateClosed, resilience.ProbeDegradedThreshold - 1, "OK", true},
		{"closed failing", gobreaker.StateClosed, resilience.ProbeDegradedThreshold, "DEGRADED", false},
		{"half-open", gobreaker.StateHalfOpen, 0, "DEGRADED", false},
		{"open", gobreaker.StateOpen, 0, "FAIL", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &resilience.ProviderHealth{
				CircuitState: tt.state,
				Counts:       gobreaker.Counts{ConsecutiveFailures: tt.failing},
			}
			assert.Equal(t, tt.status, h.Status())
			assert.Equal(t, tt.healthy, h.IsHealthy())
		})
	}
}
