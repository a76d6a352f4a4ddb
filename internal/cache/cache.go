// Package cache defines the key-value store the feed merge engine persists
// entries into. Backends list entries under a hierarchical key prefix in key
// order and apply batches of writes atomically with optional per-key TTL.
// Expiry is best effort: a backend may keep returning an entry for a while
// after its TTL has passed, but never drops it early.
package cache

import (
	"context"
	"errors"
	"time"
)

// MaxAtomicOps is the largest number of keys a single AtomicWrite accepts.
const MaxAtomicOps = 1000

// ErrTooManyOps is returned when an AtomicWrite exceeds MaxAtomicOps.
var ErrTooManyOps = errors.New("cache: too many operations in one atomic write")

// ErrClosed is returned by an in-memory cache after Close.
var ErrClosed = errors.New("cache: closed")

// WriteOp sets Key to Value. A zero TTL means the key does not expire.
type WriteOp struct {
	Key   Key
	Value []byte
	TTL   time.Duration
}

// Cache abstracts the store backing a feed cache.
// All operations are safe for concurrent use.
type Cache interface {
	// List returns the entries under prefix in key order, fetching
	// pageSize entries per round trip.
	List(ctx context.Context, prefix Key, pageSize int) *Iterator

	// AtomicWrite applies every op or none of them.
	AtomicWrite(ctx context.Context, ops []WriteOp) error

	// Ping verifies connectivity to the underlying backend.
	Ping(ctx context.Context) error

	// Close releases all resources held by the backend.
	Close() error
}

// Sweeper is implemented by backends whose expiry needs an explicit pass
// to physically remove dead keys.
type Sweeper interface {
	// Sweep deletes expired keys and returns how many were removed.
	Sweep(ctx context.Context) (int64, error)
}

func checkOps(ops []WriteOp) error {
	if len(ops) > MaxAtomicOps {
		return ErrTooManyOps
	}
	for _, op := range ops {
		if len(op.Key) == 0 {
			return errors.New("cache: empty key")
		}
		if op.TTL < 0 {
			return errors.New("cache: negative ttl")
		}
	}
	return nil
}
