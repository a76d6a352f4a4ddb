// Package api serves feeds over HTTP: submissions in, JSON Feed documents out.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/oriys/feedcache/internal/cache"
	"github.com/oriys/feedcache/internal/clock"
	"github.com/oriys/feedcache/internal/config"
	"github.com/oriys/feedcache/internal/feed"
	"github.com/oriys/feedcache/internal/logging"
	"github.com/oriys/feedcache/internal/metrics"
	"github.com/oriys/feedcache/internal/observability"
)

// ServerConfig contains dependencies for the HTTP server.
type ServerConfig struct {
	Config  *config.Config
	Cache   cache.Cache
	Metrics *metrics.PrometheusMetrics // Optional: nil disables /metrics
	Clock   clock.Clock                // Optional: defaults to the system clock
}

// Server owns per-feed session locks and routes requests to merge engines.
type Server struct {
	cfg     *config.Config
	cache   cache.Cache
	metrics *metrics.PrometheusMetrics
	clock   clock.Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewServer builds a Server. It does not start listening.
func NewServer(cfg ServerConfig) *Server {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System
	}
	return &Server{
		cfg:     cfg.Config,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		clock:   clk,
		locks:   make(map[string]*sync.Mutex),
	}
}

// RegisterRoutes registers all routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /feeds/{name}/items", s.AddItems)
	mux.HandleFunc("GET /feeds/{name}", s.RenderFeed)
	mux.HandleFunc("GET /feeds/{name}/feed.json", s.RenderFeed)
	mux.HandleFunc("GET /feeds/{name}/items", s.ListItems)
	mux.HandleFunc("GET /health", s.Health)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the routed mux wrapped with tracing middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return observability.HTTPMiddleware(mux)
}

// feedLock returns the mutex that serializes sessions for one feed.
func (s *Server) feedLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// RunSweeper evicts expired entries every interval until ctx is done. It
// returns immediately when the cache has native expiry or interval is not
// positive.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	sweeper, ok := s.cache.(cache.Sweeper)
	if !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sweeper.Sweep(ctx)
			if err != nil {
				logging.Op().Warn("sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logging.Op().Info("swept expired entries", "removed", removed)
			}
		}
	}
}

// StartHTTPServer creates and starts the HTTP server.
func StartHTTPServer(addr string, srv *Server) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Op().Error("HTTP server error", "error", err)
		}
	}()

	return server
}

func (s *Server) engine(ctx context.Context, name string, fc config.FeedConfig) *feed.Engine {
	opts := []feed.Option{
		feed.WithClock(s.clock),
		feed.WithBatchSize(s.cfg.Store.BatchSize),
		feed.WithLogger(logging.OpWithTrace(observability.GetTraceID(ctx), observability.GetSpanID(ctx)).With("feed_name", name)),
	}
	if s.metrics != nil {
		opts = append(opts, feed.WithMetrics(s.metrics))
	}
	return feed.New(s.cache, fc.Key(), fc.Metadata, opts...)
}
