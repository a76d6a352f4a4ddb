// Package metrics exposes merge and flush counters for feed caches through a
// private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics wraps prometheus collectors for feedcache metrics
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Counters
	submissionsTotal    *prometheus.CounterVec
	flushedEntriesTotal *prometheus.CounterVec
	flushBatchesTotal   *prometheus.CounterVec
	storeErrorsTotal    *prometheus.CounterVec

	// Histograms
	renderDuration *prometheus.HistogramVec

	// Gauges
	uptime        prometheus.GaugeFunc
	cachedEntries *prometheus.GaugeVec
}

// Default histogram buckets for render duration (in seconds)
var defaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewPrometheus builds the collectors and registers them on a fresh registry.
func NewPrometheus(namespace string, buckets []float64) *PrometheusMetrics {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	startTime := time.Now()

	registry := prometheus.NewRegistry()
	// Register default Go and process collectors
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		submissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Submitted feed items by merge outcome",
			},
			[]string{"feed", "outcome"},
		),

		flushedEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flushed_entries_total",
				Help:      "Cache entries written to the store",
			},
			[]string{"feed"},
		),

		flushBatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flush_batches_total",
				Help:      "Atomic write batches committed to the store",
			},
			[]string{"feed"},
		),

		storeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Failed store operations by operation",
			},
			[]string{"feed", "op"},
		),

		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Time spent loading, flushing and rendering a feed",
				Buckets:   buckets,
			},
			[]string{"feed"},
		),

		cachedEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cached_entries",
				Help:      "Live entries in the feed after the last render",
			},
			[]string{"feed"},
		),
	}

	pm.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the process started",
		},
		func() float64 {
			return time.Since(startTime).Seconds()
		},
	)

	registry.MustRegister(
		pm.submissionsTotal,
		pm.flushedEntriesTotal,
		pm.flushBatchesTotal,
		pm.storeErrorsTotal,
		pm.renderDuration,
		pm.uptime,
		pm.cachedEntries,
	)

	return pm
}

// Submission counts one merge outcome for feed.
func (pm *PrometheusMetrics) Submission(feed, outcome string) {
	pm.submissionsTotal.WithLabelValues(feed, outcome).Inc()
}

// Flushed records a completed flush.
func (pm *PrometheusMetrics) Flushed(feed string, entries, batches int) {
	pm.flushedEntriesTotal.WithLabelValues(feed).Add(float64(entries))
	pm.flushBatchesTotal.WithLabelValues(feed).Add(float64(batches))
}

// StoreError counts a failed store operation ("list" or "write").
func (pm *PrometheusMetrics) StoreError(feed, op string) {
	pm.storeErrorsTotal.WithLabelValues(feed, op).Inc()
}

// RenderDuration observes how long a render took.
func (pm *PrometheusMetrics) RenderDuration(feed string, d time.Duration) {
	pm.renderDuration.WithLabelValues(feed).Observe(d.Seconds())
}

// CachedEntries sets the live entry count for feed.
func (pm *PrometheusMetrics) CachedEntries(feed string, n int) {
	pm.cachedEntries.WithLabelValues(feed).Set(float64(n))
}

// Handler returns an HTTP handler for Prometheus metrics scraping
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// Registry returns the prometheus registry (for custom collectors)
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}
