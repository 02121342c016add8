// Package config loads service configuration from an optional YAML file and
// environment variables. Environment values override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/database"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

// History backends.
const (
	HistoryMemory   = "memory"
	HistoryPostgres = "postgres"
)

// Config aggregates runtime configuration for the API and the worker.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Imagery   ImageryConfig   `yaml:"imagery"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	History   HistoryConfig   `yaml:"history"`
	Database  database.Config `yaml:"database"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// AppConfig controls the HTTP server.
type AppConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	RequireTLS  bool   `yaml:"requireTls"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

// ImageryConfig controls date resolution.
type ImageryConfig struct {
	LookbackDays int           `yaml:"lookbackDays"`
	CheckTimeout time.Duration `yaml:"checkTimeout"`
	SampleTile   string        `yaml:"sampleTile"`
	BaseURL      string        `yaml:"baseUrl"`
	Sources      []string      `yaml:"sources"`
}

// SessionConfig controls map session lifetime.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// AuthConfig holds the admin token settings.
type AuthConfig struct {
	JWTSigningKey string `yaml:"jwtSigningKey"`
}

// HistoryConfig selects where resolutions are logged.
type HistoryConfig struct {
	Backend string `yaml:"backend"`
}

// PubSubConfig identifies the worker subscription.
type PubSubConfig struct {
	ProjectID      string `yaml:"projectId"`
	SubscriptionID string `yaml:"subscription"`
}

// WorkerConfig controls the background refresh job.
type WorkerConfig struct {
	RefreshDays int `yaml:"refreshDays"`
	Concurrency int `yaml:"concurrency"`
}

// DevSigningKey is used when no JWT key is configured outside production.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:        "8080",
			Environment: "development",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
		Imagery: ImageryConfig{
			LookbackDays: 7,
			CheckTimeout: 6 * time.Second,
			SampleTile:   "3/4/2",
			BaseURL:      imagery.DefaultBaseURL,
			Sources:      []string{string(imagery.SourceTrueColor), string(imagery.SourcePrecipitation)},
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
		},
		History: HistoryConfig{
			Backend: HistoryMemory,
		},
		Database: database.DefaultConfig(),
		PubSub: PubSubConfig{
			SubscriptionID: "imagery-refresh-worker",
		},
		Worker: WorkerConfig{
			RefreshDays: 1,
			Concurrency: 2,
		},
	}
}

// Load reads CONFIG_PATH (if set), then applies environment overrides and
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	setString("APP_PORT", &cfg.App.Port)
	setString("APP_ENV", &cfg.App.Environment)
	setBool("REQUIRE_TLS", &cfg.App.RequireTLS)

	setBool("OTEL_ENABLED", &cfg.Telemetry.Enabled)
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG: %w", err))
		} else {
			cfg.Telemetry.SampleRatio = f
		}
	}

	setInt("IMAGERY_LOOKBACK_DAYS", &cfg.Imagery.LookbackDays)
	setDuration("IMAGERY_CHECK_TIMEOUT", &cfg.Imagery.CheckTimeout)
	setString("IMAGERY_SAMPLE_TILE", &cfg.Imagery.SampleTile)
	setString("IMAGERY_BASE_URL", &cfg.Imagery.BaseURL)
	if v := os.Getenv("IMAGERY_SOURCES"); v != "" {
		cfg.Imagery.Sources = splitList(v)
	}

	setDuration("SESSION_TTL", &cfg.Session.TTL)
	setDuration("SESSION_SWEEP_INTERVAL", &cfg.Session.SweepInterval)

	setString("JWT_SIGNING_KEY", &cfg.Auth.JWTSigningKey)
	setString("HISTORY_BACKEND", &cfg.History.Backend)

	setString("PUBSUB_PROJECT_ID", &cfg.PubSub.ProjectID)
	setString("PUBSUB_SUBSCRIPTION", &cfg.PubSub.SubscriptionID)
	setInt("WORKER_REFRESH_DAYS", &cfg.Worker.RefreshDays)
	setInt("WORKER_CONCURRENCY", &cfg.Worker.Concurrency)

	if err := cfg.Database.ApplyEnv(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate ensures the configuration can be used.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Port == "" {
		errs = append(errs, errors.New("app port is required"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry sample ratio must be between 0 and 1, got %v", c.Telemetry.SampleRatio))
	}
	if c.Imagery.LookbackDays < 1 || c.Imagery.LookbackDays > availability.MaxLookback {
		errs = append(errs, fmt.Errorf("imagery lookback must be between 1 and %d, got %d",
			availability.MaxLookback, c.Imagery.LookbackDays))
	}
	if c.Imagery.CheckTimeout <= 0 {
		errs = append(errs, errors.New("imagery check timeout must be positive"))
	}
	if _, err := imagery.ParseTileCoord(c.Imagery.SampleTile); err != nil {
		errs = append(errs, fmt.Errorf("imagery sample tile: %w", err))
	}
	if !strings.HasPrefix(c.Imagery.BaseURL, "http://") && !strings.HasPrefix(c.Imagery.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("imagery base url must be http(s): %q", c.Imagery.BaseURL))
	}
	if len(c.Imagery.Sources) == 0 {
		errs = append(errs, errors.New("at least one imagery source is required"))
	}
	for _, s := range c.Imagery.Sources {
		if _, err := imagery.ParseSourceID(s); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session sweep interval must be positive"))
	}
	if c.Worker.RefreshDays < 1 || c.Worker.RefreshDays > availability.MaxLookback {
		errs = append(errs, fmt.Errorf("worker refresh days must be between 1 and %d, got %d",
			availability.MaxLookback, c.Worker.RefreshDays))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("worker concurrency must be positive"))
	}
	if c.IsProduction() && c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("jwt signing key is required in production"))
	}

	switch c.History.Backend {
	case HistoryMemory:
	case HistoryPostgres:
		if err := c.Database.Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown history backend %q", c.History.Backend))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

// SigningKey returns the configured JWT key, falling back to DevSigningKey.
func (c *Config) SigningKey() string {
	if c.Auth.JWTSigningKey == "" {
		return DevSigningKey
	}
	return c.Auth.JWTSigningKey
}

// SourceIDs returns the configured imagery sources. Call after Validate.
func (c *Config) SourceIDs() []imagery.SourceID {
	ids := make([]imagery.SourceID, 0, len(c.Imagery.Sources))
	for _, s := range c.Imagery.Sources {
		if id, err := imagery.ParseSourceID(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// SampleTile returns the parsed sample coordinate. Call after Validate.
func (c *Config) SampleTile() imagery.TileCoord {
	coord, err := imagery.ParseTileCoord(c.Imagery.SampleTile)
	if err != nil {
		return imagery.TileCoord{Z: 3, X: 4, Y: 2}
	}
	return coord
}
