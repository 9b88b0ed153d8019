// Package config reads tripsplit settings from the environment and opens the configured store.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/internal/storage/postgres"
	"github.com/mmynk/tripsplit/internal/storage/sqlite"
	"github.com/mmynk/tripsplit/pkg/logging"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the settings shared by the CLI and the report server.
type Config struct {
	Driver      string // TRIPSPLIT_DB_DRIVER
	DBPath      string // TRIPSPLIT_DB_PATH, SQLite file
	DatabaseURL string // TRIPSPLIT_DATABASE_URL, PostgreSQL DSN
	Addr        string // TRIPSPLIT_ADDR, report server listen address
	LogLevel    slog.Level

	// RateLimit is the sustained number of requests per second allowed per client.
	RateLimit float64 // TRIPSPLIT_RATE_LIMIT
	RateBurst int     // TRIPSPLIT_RATE_BURST

	// TrustProxy makes the rate limiter key clients on X-Forwarded-For.
	TrustProxy bool // TRIPSPLIT_TRUST_PROXY
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// FromEnv returns the configuration from the environment, with defaults.
func FromEnv() (Config, error) {
	c := Config{
		Driver:      getEnv("TRIPSPLIT_DB_DRIVER", DriverSQLite),
		DBPath:      getEnv("TRIPSPLIT_DB_PATH", "./data/tripsplit.db"),
		DatabaseURL: getEnv("TRIPSPLIT_DATABASE_URL", ""),
		Addr:        getEnv("TRIPSPLIT_ADDR", ":8080"),
		LogLevel:    logging.LevelFromEnv(),
	}

	var err error
	if c.RateLimit, err = strconv.ParseFloat(getEnv("TRIPSPLIT_RATE_LIMIT", "10"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid TRIPSPLIT_RATE_LIMIT: %w", err)
	}
	if c.RateBurst, err = strconv.Atoi(getEnv("TRIPSPLIT_RATE_BURST", "20")); err != nil {
		return Config{}, fmt.Errorf("invalid TRIPSPLIT_RATE_BURST: %w", err)
	}
	if c.TrustProxy, err = strconv.ParseBool(getEnv("TRIPSPLIT_TRUST_PROXY", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid TRIPSPLIT_TRUST_PROXY: %w", err)
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return Config{}, fmt.Errorf("rate limit and burst must be positive, got %v and %d", c.RateLimit, c.RateBurst)
	}
	return c, nil
}

// OpenStore opens the store selected by Driver.
func (c Config) OpenStore(ctx context.Context) (storage.Store, error) {
	switch c.Driver {
	case DriverSQLite:
		store, err := sqlite.New(c.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Debug("Storage initialized", "driver", c.Driver, "database", c.DBPath)
		return store, nil
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("TRIPSPLIT_DATABASE_URL is required for the %s driver", DriverPostgres)
		}
		store, err := postgres.Open(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Debug("Storage initialized", "driver", c.Driver)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q (want %s or %s)", c.Driver, DriverSQLite, DriverPostgres)
	}
}
