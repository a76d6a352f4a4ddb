package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key a backend writes.
const DefaultNamespace = "feedcache:"

// RedisCache implements Cache backed by Redis. Batches are applied in a
// MULTI/EXEC transaction and TTLs are enforced by Redis itself.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

// RedisCacheConfig holds configuration for the Redis cache.
type RedisCacheConfig struct {
	Addr      string // Redis address (e.g. "localhost:6379")
	Password  string // Redis password
	DB        int    // Redis database number
	Namespace string // Key namespace (default: "feedcache:")
}

// NewRedisCache creates a new Redis-backed cache.
func NewRedisCache(cfg RedisCacheConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCacheFromClient(client, cfg.Namespace)
}

// NewRedisCacheFromClient creates a Redis cache using an existing client.
func NewRedisCacheFromClient(client *redis.Client, namespace string) *RedisCache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisCache{
		client:    client,
		namespace: namespace,
	}
}

func (c *RedisCache) key(k string) string {
	return c.namespace + k
}

// List scans the keyspace under prefix once, sorts the keys and then reads
// values page by page with MGET. Keys that expire between the scan and the
// read are skipped, and a page is only short once the keys run out.
func (c *RedisCache) List(ctx context.Context, prefix Key, pageSize int) *Iterator {
	var (
		once    sync.Once
		keys    []string
		scanErr error
	)
	match := escapeGlob(c.key(prefix.rangePrefix())) + "*"

	return NewIterator(func(ctx context.Context, after string, limit int) ([]Pair, error) {
		once.Do(func() {
			keys, scanErr = c.scan(ctx, match, int64(limit))
		})
		if scanErr != nil {
			return nil, scanErr
		}
		start := sort.SearchStrings(keys, after)
		for start < len(keys) && keys[start] <= after {
			start++
		}
		page := make([]Pair, 0, limit)
		for start < len(keys) && len(page) < limit {
			end := start + limit - len(page)
			if end > len(keys) {
				end = len(keys)
			}
			window := keys[start:end]
			start = end

			full := make([]string, len(window))
			for i, k := range window {
				full[i] = c.key(k)
			}
			vals, err := c.client.MGet(ctx, full...).Result()
			if err != nil {
				return nil, fmt.Errorf("redis mget: %w", err)
			}
			for i, v := range vals {
				s, ok := v.(string)
				if !ok {
					continue
				}
				page = append(page, Pair{Key: window[i], Value: []byte(s)})
			}
		}
		return page, nil
	}, pageSize)
}

func (c *RedisCache) scan(ctx context.Context, match string, count int64) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, match, count).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, c.namespace))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	// SCAN may return a key more than once.
	return dedupSorted(keys), nil
}

func (c *RedisCache) AtomicWrite(ctx context.Context, ops []WriteOp) error {
	if err := checkOps(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			pipe.Set(ctx, c.key(op.Key.String()), op.Value, op.TTL)
		}
		return nil
	})
	return err
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

func dedupSorted(keys []string) []string {
	if len(keys) < 2 {
		return keys
	}
	out := keys[:1]
	for _, k := range keys[1:] {
		if k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
