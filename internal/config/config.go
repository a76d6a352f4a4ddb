// Package config loads feedcache settings from a YAML file and FEEDCACHE_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oriys/feedcache/internal/cache"
	"github.com/oriys/feedcache/internal/jsonfeed"
	"github.com/oriys/feedcache/internal/observability"
)

// Default values for the configuration.
const (
	DefaultRedisAddr     = "localhost:6379"
	DefaultHTTPAddr      = ":8080"
	DefaultSweepInterval = 5 * time.Minute
	DefaultFeedRoot      = "feeds"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// MemoryConfig holds in-process cache settings
type MemoryConfig struct {
	EvictInterval time.Duration `yaml:"evict_interval"`
}

// StoreConfig selects the cache backend.
type StoreConfig struct {
	// Backend is one of: memory | redis | postgres.
	Backend string `yaml:"backend"`

	// Namespace prefixes every key in shared backends (default "feedcache:").
	Namespace string `yaml:"namespace"`

	// BatchSize caps entries per atomic write and per listing page.
	BatchSize int `yaml:"batch_size"`

	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Memory   MemoryConfig   `yaml:"memory"`
}

// FeedConfig describes one published feed.
type FeedConfig struct {
	// Prefix is the key path the feed's entries live under.
	// Defaults to ["feeds", <name>].
	Prefix []string `yaml:"prefix"`

	jsonfeed.Metadata `yaml:",inline"`
}

// DaemonConfig holds daemon-specific settings
type DaemonConfig struct {
	HTTPAddr      string        `yaml:"http_addr"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoggingConfig configures the operational logger.
type LoggingConfig struct {
	Format string `yaml:"format"` // text | json
	Level  string `yaml:"level"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// ObservabilityConfig groups logging, metrics and tracing.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// Config is the central configuration struct embedding all component configs
type Config struct {
	Store         StoreConfig           `yaml:"store"`
	Feeds         map[string]FeedConfig `yaml:"feeds"`
	Daemon        DaemonConfig          `yaml:"daemon"`
	Observability ObservabilityConfig   `yaml:"observability"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:   cache.BackendMemory,
			Namespace: cache.DefaultNamespace,
			BatchSize: cache.MaxAtomicOps,
			Redis: RedisConfig{
				Addr: DefaultRedisAddr,
			},
			Memory: MemoryConfig{
				EvictInterval: cache.DefaultEvictInterval,
			},
		},
		Feeds: map[string]FeedConfig{},
		Daemon: DaemonConfig{
			HTTPAddr:      DefaultHTTPAddr,
			SweepInterval: DefaultSweepInterval,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Format: "text",
				Level:  "info",
			},
			Metrics: MetricsConfig{
				Enabled:   true,
				Namespace: "feedcache",
			},
			Tracing: TracingConfig{
				Exporter:   "otlp-http",
				Endpoint:   "localhost:4318",
				SampleRate: 1.0,
			},
		},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if cfg.Feeds == nil {
		cfg.Feeds = map[string]FeedConfig{}
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("FEEDCACHE_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("FEEDCACHE_NAMESPACE"); v != "" {
		cfg.Store.Namespace = v
	}
	if v := os.Getenv("FEEDCACHE_REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("FEEDCACHE_REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("FEEDCACHE_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: FEEDCACHE_REDIS_DB: %w", err)
		}
		cfg.Store.Redis.DB = db
	}
	if v := os.Getenv("FEEDCACHE_POSTGRES_DSN"); v != "" {
		cfg.Store.Postgres.DSN = v
	}
	if v := os.Getenv("FEEDCACHE_HTTP_ADDR"); v != "" {
		cfg.Daemon.HTTPAddr = v
	}
	if v := os.Getenv("FEEDCACHE_LOG_LEVEL"); v != "" {
		cfg.Observability.Logging.Level = v
	}
	if v := os.Getenv("FEEDCACHE_LOG_FORMAT"); v != "" {
		cfg.Observability.Logging.Format = v
	}
	if v := os.Getenv("FEEDCACHE_OTLP_ENDPOINT"); v != "" {
		cfg.Observability.Tracing.Enabled = true
		cfg.Observability.Tracing.Endpoint = v
	}
	return nil
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case cache.BackendMemory, cache.BackendRedis:
	case cache.BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend %q unknown: want memory|redis|postgres", c.Store.Backend)
	}
	if c.Store.BatchSize <= 0 || c.Store.BatchSize > cache.MaxAtomicOps {
		return fmt.Errorf("store.batch_size %d is out of range [1, %d]", c.Store.BatchSize, cache.MaxAtomicOps)
	}
	if c.Daemon.SweepInterval < 0 {
		return fmt.Errorf("daemon.sweep_interval must not be negative")
	}
	switch c.Observability.Logging.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("observability.logging.format %q unknown: want text|json", c.Observability.Logging.Format)
	}
	for name, feed := range c.Feeds {
		if err := feed.Validate(); err != nil {
			return fmt.Errorf("feeds.%s: %w", name, err)
		}
	}
	return nil
}

// Feed returns the named feed with its prefix resolved.
func (c *Config) Feed(name string) (FeedConfig, error) {
	feed, ok := c.Feeds[name]
	if !ok {
		return FeedConfig{}, fmt.Errorf("feed %q is not configured", name)
	}
	if len(feed.Prefix) == 0 {
		feed.Prefix = []string{DefaultFeedRoot, name}
	}
	return feed, nil
}

// Key returns the cache prefix for the feed.
func (f FeedConfig) Key() cache.Key {
	return cache.NewKey(f.Prefix...)
}

// CacheConfig converts the store section into cache.Open's configuration.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Backend:       c.Store.Backend,
		Namespace:     c.Store.Namespace,
		EvictInterval: c.Store.Memory.EvictInterval,
		Redis: cache.RedisCacheConfig{
			Addr:      c.Store.Redis.Addr,
			Password:  c.Store.Redis.Password,
			DB:        c.Store.Redis.DB,
			Namespace: c.Store.Namespace,
		},
		PostgresDSN: c.Store.Postgres.DSN,
	}
}

// Telemetry converts the tracing section for observability.Init.
func (c *Config) Telemetry() observability.Config {
	t := c.Observability.Tracing
	return observability.Config{
		Enabled:     t.Enabled,
		Exporter:    t.Exporter,
		Endpoint:    t.Endpoint,
		ServiceName: "feedcache",
		SampleRate:  t.SampleRate,
	}
}
