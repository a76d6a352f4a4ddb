package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Namespace     string
	EvictInterval time.Duration // memory backend only
	Redis         RedisCacheConfig
	PostgresDSN   string
}

// Open builds the backend named by cfg.Backend and verifies connectivity.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewInMemoryCache(cfg.EvictInterval), nil
	case BackendRedis:
		redisCfg := cfg.Redis
		if redisCfg.Namespace == "" {
			redisCfg.Namespace = cfg.Namespace
		}
		c := NewRedisCache(redisCfg)
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return c, nil
	case BackendPostgres:
		return NewPostgresCache(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
