package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oriys/feedcache/internal/domain"
	"github.com/oriys/feedcache/internal/observability"
)

// ensureLoaded reads every entry under the prefix once per session. Entries
// already expired at now are dropped even if the store still returns them.
// A failed load leaves the session unloaded so the next call retries.
func (e *Engine) ensureLoaded(ctx context.Context, now time.Time) error {
	if e.loaded {
		return nil
	}
	ctx, span := observability.StartSpan(ctx, "feed.load",
		observability.AttrFeed.String(e.feed),
	)
	defer span.End()

	loaded := newEntrySet()
	expired := 0
	it := e.cache.List(ctx, e.prefix, e.batchSize)
	for it.Next(ctx) {
		pair := it.Pair()
		var entry domain.Entry
		if err := json.Unmarshal(pair.Value, &entry); err != nil {
			e.logger.Warn("skipping undecodable cache entry", "key", pair.Key, "error", err)
			continue
		}
		if entry.ID() == "" {
			e.logger.Warn("skipping cache entry without item id", "key", pair.Key)
			continue
		}
		if want := e.prefix.Append(entry.ID()).String(); pair.Key != want {
			e.logger.Warn("skipping cache entry whose key does not match its id", "key", pair.Key, "id", entry.ID())
			continue
		}
		if entry.Expired(now) {
			expired++
			continue
		}
		loaded.put(entry)
	}
	if err := it.Err(); err != nil {
		e.metrics.StoreError(e.feed, "list")
		e.logger.Warn("cache load failed", "error", err)
		observability.SetSpanError(span, err)
		return fmt.Errorf("%w: %w", ErrStoreRead, err)
	}

	e.cached = loaded
	e.loaded = true
	span.SetAttributes(observability.AttrEntries.Int(loaded.len()))
	e.logger.Debug("cache loaded", "entries", loaded.len(), "expired", expired)
	return nil
}

// prune removes entries that died since the last call.
func (e *Engine) prune(now time.Time) {
	if n := e.cached.prune(now) + e.pending.prune(now); n > 0 {
		e.logger.Debug("pruned expired entries", "count", n)
	}
}
