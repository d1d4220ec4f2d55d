package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Rebuild modes select who consumes interaction events.
const (
	RebuildInline = "inline"
	RebuildOutbox = "outbox"
)

// Prefix is the environment variable prefix, e.g. FEED_SERVICE_HTTP_PORT.
const Prefix = "FEED_SERVICE"

// Config holds the configuration for the feed service and profile worker.
type Config struct {
	// Build target selects high-level environment: local, cloud-dev, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	DBDriver    string      `envconfig:"DB_DRIVER" default:"auto"`
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`

	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"10"`

	// Profile rebuild scheduling
	RebuildMode    string `envconfig:"REBUILD_MODE" default:"inline"`
	RebuildEvery   int    `envconfig:"REBUILD_EVERY" default:"10"`
	EventBuffer    int    `envconfig:"EVENT_BUFFER" default:"1024"`
	RebuildWorkers int    `envconfig:"REBUILD_WORKERS" default:"2"`

	OutboxBatchSize int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxInterval  time.Duration `envconfig:"OUTBOX_INTERVAL" default:"2s"`

	// Ranking
	DefaultPageSize  int           `envconfig:"DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize      int           `envconfig:"MAX_PAGE_SIZE" default:"100"`
	MaxPage          int           `envconfig:"MAX_PAGE" default:"500"`
	GeneratorTimeout time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"2s"`
	MaxScan          int           `envconfig:"MAX_SCAN" default:"5000"`
	TrackFeedViews   bool          `envconfig:"TRACK_FEED_VIEWS" default:"true"`
	ShuffleWindow    time.Duration `envconfig:"SHUFFLE_WINDOW" default:"15m"`

	// Similarity floors
	MinCommonLikes int `envconfig:"MIN_COMMON_LIKES" default:"2"`
	MinTotalLikes  int `envconfig:"MIN_TOTAL_LIKES" default:"0"`

	BreakerFailures int           `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver and SQLitePath when unset.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud-dev", "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for DB_DRIVER=postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			p, err := defaultSQLitePath()
			if err != nil {
				return err
			}
			c.SQLitePath = p
		}
	case "memory":
		// process-local; data is lost on restart
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	switch c.RebuildMode {
	case "", RebuildInline:
		c.RebuildMode = RebuildInline
	case RebuildOutbox:
		if c.DBDriver != "postgres" {
			return fmt.Errorf("REBUILD_MODE=outbox requires DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported REBUILD_MODE: %s", c.RebuildMode)
	}

	if c.RebuildEvery <= 0 {
		return fmt.Errorf("REBUILD_EVERY must be positive, got %d", c.RebuildEvery)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default=%d max=%d", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.MaxPage <= 0 {
		return fmt.Errorf("MAX_PAGE must be positive, got %d", c.MaxPage)
	}
	return nil
}

// defaultSQLitePath returns ~/.mycelian-feed/feed.db; FEED_SERVICE_HOME overrides the directory.
func defaultSQLitePath() (string, error) {
	dir := os.Getenv(Prefix + "_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home: %w", err)
		}
		dir = filepath.Join(home, ".mycelian-feed")
	}
	return filepath.Join(dir, "feed.db"), nil
}

// New creates a new Config by parsing environment variables
// prefixed with FEED_SERVICE_, e.g. FEED_SERVICE_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("rebuild_mode", cfg.RebuildMode).
		Int("rebuild_every", cfg.RebuildEvery).
		Dur("generator_timeout", cfg.GeneratorTimeout).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		BuildTarget:               "local",
		DBDriver:                  "sqlite",
		Environment:               EnvTesting,
		HTTPPort:                  8080,
		LogLevel:                  "debug",
		SQLitePath:                "file::memory:?cache=shared",
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		BootstrapTimeoutSeconds:   5,
		RebuildMode:               RebuildInline,
		RebuildEvery:              10,
		EventBuffer:               64,
		RebuildWorkers:            1,
		OutboxBatchSize:           10,
		OutboxInterval:            50 * time.Millisecond,
		DefaultPageSize:           20,
		MaxPageSize:               100,
		MaxPage:                   50,
		GeneratorTimeout:          time.Second,
		MaxScan:                   1000,
		TrackFeedViews:            false,
		ShuffleWindow:             time.Minute,
		MinCommonLikes:            2,
		MinTotalLikes:             0,
		BreakerFailures:           3,
		BreakerTimeout:            time.Second,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
