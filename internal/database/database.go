// Package database provides PostgreSQL connection management.
package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DefaultConfig returns the local development settings.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "elninowatch",
		Password:        "localdev",
		Database:        "elninowatch",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// ConfigFromEnv creates a Config from environment variables over the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return DefaultConfig()
	}
	return cfg
}

// ApplyEnv overrides fields from DB_* environment variables. Unparseable
// numeric or duration values are reported as errors.
func (c *Config) ApplyEnv() error {
	c.Host = getEnvOrDefault("DB_HOST", c.Host)
	c.User = getEnvOrDefault("DB_USER", c.User)
	c.Password = getEnvOrDefault("DB_PASSWORD", c.Password)
	c.Database = getEnvOrDefault("DB_NAME", c.Database)
	c.SSLMode = getEnvOrDefault("DB_SSL_MODE", c.SSLMode)

	var err error
	if c.Port, err = envInt("DB_PORT", c.Port); err != nil {
		return err
	}
	if c.MaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", c.MaxOpenConns); err != nil {
		return err
	}
	if c.MaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", c.MaxIdleConns); err != nil {
		return err
	}
	if v := os.Getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", perr)
		}
		c.ConnMaxLifetime = d
	}
	return nil
}

// Validate checks the pool bounds.
func (c Config) Validate() error {
	if c.Host == "" || c.Database == "" {
		return fmt.Errorf("database host and name are required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("database port out of range: %d", c.Port)
	}
	if c.MaxOpenConns < 1 || c.MaxOpenConns > 1000 {
		return fmt.Errorf("database max open conns out of range: %d", c.MaxOpenConns)
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("database max idle conns out of range: %d", c.MaxIdleConns)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Connect creates a new database connection pool.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns) //nolint:gosec // bounded by Validate
	poolConfig.MinConns = int32(cfg.MaxIdleConns) //nolint:gosec // bounded by Validate
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
