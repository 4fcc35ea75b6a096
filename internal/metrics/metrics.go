// Package metrics exposes Prometheus counters and histograms for the cache,
// the upstream data source and the HTTP surface, on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "pmbot"

// Collector holds the application's metrics. It satisfies cache.Observer and
// notion.RequestObserver.
type Collector struct {
	registry *prometheus.Registry

	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	snapshots        *prometheus.CounterVec
}

// New creates a collector registered on its own registry, so several can
// coexist in one process (tests).
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_hits_total",
			Help:      "Cache lookups served from a fresh entry.",
		}, []string{"key"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_misses_total",
			Help:      "Cache lookups that invoked the producer.",
		}, []string{"key"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the workspace API.",
		}, []string{"op", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Workspace API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "snapshots_total",
			Help:      "Analytics snapshot runs by outcome.",
		}, []string{"outcome"}),
	}
	c.registry.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.upstreamRequests,
		c.upstreamDuration,
		c.httpRequests,
		c.httpDuration,
		c.snapshots,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// CacheHit implements cache.Observer.
func (c *Collector) CacheHit(key string) {
	c.cacheHits.WithLabelValues(key).Inc()
}

// CacheMiss implements cache.Observer.
func (c *Collector) CacheMiss(key string) {
	c.cacheMisses.WithLabelValues(key).Inc()
}

// ObserveRequest implements notion.RequestObserver. Status 0 means the call
// failed before a response arrived.
func (c *Collector) ObserveRequest(op string, status int, elapsed time.Duration) {
	c.upstreamRequests.WithLabelValues(op, statusLabel(status)).Inc()
	c.upstreamDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SnapshotRecorded counts a snapshot job run.
func (c *Collector) SnapshotRecorded(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.snapshots.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware records request counts and latencies by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		c.httpRequests.WithLabelValues(r.Method, route, statusLabel(ww.Status())).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
