package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultEvictInterval is how often InMemoryCache removes expired keys.
const DefaultEvictInterval = 30 * time.Second

// InMemoryCache is an in-process Cache. Expired keys stay listable until the
// eviction loop (or Sweep) removes them, the same lag a remote store shows.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	closed  bool
	now     func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewInMemoryCache creates an in-memory cache that evicts expired keys every
// evictInterval. A non-positive interval uses DefaultEvictInterval.
func NewInMemoryCache(evictInterval time.Duration) *InMemoryCache {
	if evictInterval <= 0 {
		evictInterval = DefaultEvictInterval
	}
	c := &InMemoryCache{
		entries: make(map[string]*memEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.evictLoop(evictInterval)
	return c
}

func (c *InMemoryCache) List(_ context.Context, prefix Key, pageSize int) *Iterator {
	start := prefix.rangePrefix()
	return NewIterator(func(_ context.Context, after string, limit int) ([]Pair, error) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.closed {
			return nil, ErrClosed
		}
		keys := make([]string, 0, len(c.entries))
		for k := range c.entries {
			if strings.HasPrefix(k, start) && k > after {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		if len(keys) > limit {
			keys = keys[:limit]
		}
		page := make([]Pair, 0, len(keys))
		for _, k := range keys {
			// Return a copy to prevent mutation
			val := make([]byte, len(c.entries[k].value))
			copy(val, c.entries[k].value)
			page = append(page, Pair{Key: k, Value: val})
		}
		return page, nil
	}, pageSize)
}

func (c *InMemoryCache) AtomicWrite(_ context.Context, ops []WriteOp) error {
	if err := checkOps(ops); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	now := c.now()
	for _, op := range ops {
		var expiresAt time.Time
		if op.TTL > 0 {
			expiresAt = now.Add(op.TTL)
		}
		cp := make([]byte, len(op.Value))
		copy(cp, op.Value)
		c.entries[op.Key.String()] = &memEntry{value: cp, expiresAt: expiresAt}
	}
	return nil
}

// Sweep removes every expired key immediately.
func (c *InMemoryCache) Sweep(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked(), nil
}

// Len returns the number of physically present keys, expired or not.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryCache) Ping(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *InMemoryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.entries = nil
	close(c.stop)
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

func (c *InMemoryCache) evictLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.evictLocked()
			c.mu.Unlock()
		}
	}
}

func (c *InMemoryCache) evictLocked() int64 {
	now := c.now()
	var n int64
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}
