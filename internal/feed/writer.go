package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oriys/feedcache/internal/cache"
	"github.com/oriys/feedcache/internal/domain"
	"github.com/oriys/feedcache/internal/observability"
)

// flush writes pending entries in batches of batchSize, each batch in one
// atomic write, then folds them into cached. If any batch fails, pending is
// left as it was; rewriting already committed batches is harmless because
// every op is a keyed set.
func (e *Engine) flush(ctx context.Context, now time.Time) error {
	entries := e.pending.entries()
	batches := chunk(entries, e.batchSize)

	ctx, span := observability.StartSpan(ctx, "feed.flush",
		observability.AttrFeed.String(e.feed),
		observability.AttrEntries.Int(len(entries)),
		observability.AttrBatches.Int(len(batches)),
	)
	defer span.End()

	start := time.Now()
	for i, batch := range batches {
		ops, err := e.writeOps(now, batch)
		if err != nil {
			observability.SetSpanError(span, err)
			return err
		}
		if err := e.cache.AtomicWrite(ctx, ops); err != nil {
			e.metrics.StoreError(e.feed, "write")
			e.logger.Warn("flush batch failed", "batch", i+1, "batches", len(batches), "error", err)
			observability.SetSpanError(span, err)
			return fmt.Errorf("%w: batch %d of %d: %w", ErrStoreWrite, i+1, len(batches), err)
		}
	}

	e.pending.drainInto(e.cached)
	e.metrics.Flushed(e.feed, len(entries), len(batches))
	e.logger.Info("flushed pending entries",
		"entries", len(entries),
		"batches", len(batches),
		"duration", time.Since(start),
	)
	return nil
}

func (e *Engine) writeOps(now time.Time, batch []domain.Entry) ([]cache.WriteOp, error) {
	ops := make([]cache.WriteOp, 0, len(batch))
	for _, entry := range batch {
		value, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("encode entry %q: %w", entry.ID(), err)
		}
		ops = append(ops, cache.WriteOp{
			Key:   e.prefix.Append(entry.ID()),
			Value: value,
			TTL:   entry.TTL(now),
		})
	}
	return ops, nil
}

func chunk[T any](s []T, size int) [][]T {
	var out [][]T
	for size < len(s) {
		out = append(out, s[:size:size])
		s = s[size:]
	}
	if len(s) > 0 {
		out = append(out, s)
	}
	return out
}
