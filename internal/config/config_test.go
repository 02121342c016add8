package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elninowatch/elninowatch/internal/config"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 7, cfg.Imagery.LookbackDays)
	assert.Equal(t, 6*time.Second, cfg.Imagery.CheckTimeout)
	assert.Equal(t, imagery.TileCoord{Z: 3, X: 4, Y: 2}, cfg.SampleTile())
	assert.Equal(t, []imagery.SourceID{imagery.SourceTrueColor, imagery.SourcePrecipitation}, cfg.SourceIDs())
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, config.HistoryMemory, cfg.History.Backend)
	assert.Equal(t, config.DevSigningKey, cfg.SigningKey())
	assert.False(t, cfg.Telemetry.Enabled)
	assert.InDelta(t, 1.0, cfg.Telemetry.SampleRatio, 1e-9)
	assert.Equal(t, 1, cfg.Worker.RefreshDays)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.False(t, cfg.App.RequireTLS)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("IMAGERY_LOOKBACK_DAYS", "10")
	t.Setenv("IMAGERY_CHECK_TIMEOUT", "2s")
	t.Setenv("IMAGERY_SAMPLE_TILE", "2/1/3")
	t.Setenv("IMAGERY_SOURCES", "true-color, sea-surface-temperature")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("REQUIRE_TLS", "1")
	t.Setenv("WORKER_REFRESH_DAYS", "3")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
	assert.True(t, cfg.App.RequireTLS)
	assert.Equal(t, 3, cfg.Worker.RefreshDays)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 10, cfg.Imagery.LookbackDays)
	assert.Equal(t, 2*time.Second, cfg.Imagery.CheckTimeout)
	assert.Equal(t, imagery.TileCoord{Z: 2, X: 1, Y: 3}, cfg.SampleTile())
	assert.Equal(t, []imagery.SourceID{imagery.SourceTrueColor, imagery.SourceSeaSurface}, cfg.SourceIDs())
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "secret", cfg.SigningKey())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  port: "7070"
imagery:
  lookbackDays: 5
  checkTimeout: 3s
  sources: [precipitation]
history:
  backend: postgres
database:
  host: db
  database: history
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("IMAGERY_LOOKBACK_DAYS", "6")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.App.Port)
	assert.Equal(t, 6, cfg.Imagery.LookbackDays, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Imagery.CheckTimeout)
	assert.Equal(t, []imagery.SourceID{imagery.SourcePrecipitation}, cfg.SourceIDs())
	assert.Equal(t, config.HistoryPostgres, cfg.History.Backend)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port, "unset fields keep defaults")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"lookback zero", "IMAGERY_LOOKBACK_DAYS", "0"},
		{"lookback too large", "IMAGERY_LOOKBACK_DAYS", "60"},
		{"lookback garbage", "IMAGERY_LOOKBACK_DAYS", "seven"},
		{"timeout garbage", "IMAGERY_CHECK_TIMEOUT", "soon"},
		{"sample tile", "IMAGERY_SAMPLE_TILE", "3/9/2"},
		{"base url", "IMAGERY_BASE_URL", "ftp://example.com"},
		{"unknown source", "IMAGERY_SOURCES", "true-color,radar"},
		{"history backend", "HISTORY_BACKEND", "redis"},
		{"session ttl", "SESSION_TTL", "-1m"},
		{"sample ratio range", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
		{"sample ratio garbage", "OTEL_TRACES_SAMPLER_ARG", "half"},
		{"require tls garbage", "REQUIRE_TLS", "maybe"},
		{"refresh days", "WORKER_REFRESH_DAYS", "40"},
		{"concurrency", "WORKER_CONCURRENCY", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := config.Load()
	assert.ErrorContains(t, err, "jwt signing key")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := config.Load()
	assert.ErrorContains(t, err, "read config file")
}
