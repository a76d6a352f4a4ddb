package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/oriys/feedcache/internal/cache"
	"github.com/oriys/feedcache/internal/clock"
	"github.com/oriys/feedcache/internal/domain"
	"github.com/oriys/feedcache/internal/jsonfeed"
	"github.com/oriys/feedcache/internal/logging"
	"github.com/oriys/feedcache/internal/observability"
)

// Merge outcomes reported to the Recorder.
const (
	OutcomeAccepted  = "accepted"
	OutcomeUnchanged = "unchanged"
	OutcomeReplaced  = "replaced"
	OutcomeRejected  = "rejected"
)

// Recorder receives engine metrics. *metrics.PrometheusMetrics satisfies it.
type Recorder interface {
	Submission(feed, outcome string)
	Flushed(feed string, entries, batches int)
	StoreError(feed, op string)
	RenderDuration(feed string, d time.Duration)
	CachedEntries(feed string, n int)
}

type nopRecorder struct{}

func (nopRecorder) Submission(string, string)            {}
func (nopRecorder) Flushed(string, int, int)             {}
func (nopRecorder) StoreError(string, string)            {}
func (nopRecorder) RenderDuration(string, time.Duration) {}
func (nopRecorder) CachedEntries(string, int)            {}

// Option mutates engine configuration.
type Option func(*Engine)

// WithClock injects the time source. The engine reads it once per call.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger injects a logger directly.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBatchSize sets how many entries go into one atomic write and how many
// entries are listed per page. Values outside 1..cache.MaxAtomicOps are ignored.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 && n <= cache.MaxAtomicOps {
			e.batchSize = n
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// Engine is one merge session bound to a cache prefix.
type Engine struct {
	cache     cache.Cache
	prefix    cache.Key
	feed      string
	meta      jsonfeed.Metadata
	clock     clock.Clock
	logger    *slog.Logger
	metrics   Recorder
	batchSize int
	sessionID string

	loaded  bool
	cached  *entrySet
	pending *entrySet
}

// New creates a session over the entries stored under prefix in c.
func New(c cache.Cache, prefix cache.Key, meta jsonfeed.Metadata, opts ...Option) *Engine {
	e := &Engine{
		cache:     c,
		prefix:    prefix.Append(),
		feed:      prefix.String(),
		meta:      meta,
		clock:     clock.System,
		logger:    logging.Op(),
		metrics:   nopRecorder{},
		batchSize: cache.MaxAtomicOps,
		sessionID: uuid.NewString(),
		cached:    newEntrySet(),
		pending:   newEntrySet(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("feed", e.feed, "session", e.sessionID)
	return e
}

// SessionID identifies this engine in logs and traces.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Add merges subs into the session in order, stopping at the first invalid
// submission. See the package documentation for the merge rules.
func (e *Engine) Add(ctx context.Context, subs ...domain.Submission) error {
	now := e.clock.Now()
	ctx, span := observability.StartSpan(ctx, "feed.add",
		observability.AttrFeed.String(e.feed),
		observability.AttrSession.String(e.sessionID),
		observability.AttrSubmissions.Int(len(subs)),
	)
	defer span.End()

	if err := e.ensureLoaded(ctx, now); err != nil {
		observability.SetSpanError(span, err)
		return err
	}
	e.prune(now)

	for i, sub := range subs {
		outcome, err := e.merge(now, sub)
		if err != nil {
			e.metrics.Submission(e.feed, OutcomeRejected)
			serr := &SubmissionError{Index: i, ID: submissionID(sub), Err: err}
			e.logger.Debug("submission rejected", "index", i, "id", serr.ID, "error", err)
			span.AddEvent("submission rejected", trace.WithAttributes(
				observability.AttrItemID.String(serr.ID),
				observability.AttrSubmissionIndex.Int(i),
			))
			observability.SetSpanError(span, serr)
			return serr
		}
		e.metrics.Submission(e.feed, outcome)
		e.logger.Debug("submission merged", "id", submissionID(sub), "outcome", outcome)
	}
	observability.SetSpanOK(span)
	return nil
}

// Render loads, prunes and flushes the session, then serializes cached items
// followed by items added in this session. Calling it again without an
// intervening Add yields the same document and writes nothing.
func (e *Engine) Render(ctx context.Context) ([]byte, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "feed.render",
		observability.AttrFeed.String(e.feed),
		observability.AttrSession.String(e.sessionID),
	)
	defer span.End()

	items, err := e.sync(ctx)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}
	doc, err := jsonfeed.Render(e.meta, items)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}
	e.metrics.RenderDuration(e.feed, time.Since(start))
	observability.SetSpanOK(span)
	return doc, nil
}

// Items performs the same load, prune and flush as Render and returns copies
// of the merged items instead of a document.
func (e *Engine) Items(ctx context.Context) ([]domain.Item, error) {
	ctx, span := observability.StartSpan(ctx, "feed.items",
		observability.AttrFeed.String(e.feed),
		observability.AttrSession.String(e.sessionID),
	)
	defer span.End()

	items, err := e.sync(ctx)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		cp, err := domain.NormalizeItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (e *Engine) sync(ctx context.Context) ([]domain.Item, error) {
	now := e.clock.Now()
	if err := e.ensureLoaded(ctx, now); err != nil {
		return nil, err
	}
	e.prune(now)
	if e.pending.len() > 0 {
		if err := e.flush(ctx, now); err != nil {
			return nil, err
		}
	}

	items := make([]domain.Item, 0, e.cached.len()+e.pending.len())
	for _, entry := range e.cached.entries() {
		items = append(items, entry.Item)
	}
	for _, entry := range e.pending.entries() {
		items = append(items, entry.Item)
	}
	e.metrics.CachedEntries(e.feed, len(items))
	return items, nil
}

func submissionID(sub domain.Submission) string {
	if sub.Item == nil {
		return ""
	}
	return sub.Item.ID()
}
