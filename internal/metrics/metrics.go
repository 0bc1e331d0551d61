// Package metrics defines the prometheus collectors for the scoring
// service. All recording methods are nil-safe so components can run
// without a metrics sink in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service collectors behind a private registry so
// multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	inFlight       prometheus.Gauge
	storeRetries   prometheus.Counter
	scoreCacheHits prometheus.Counter
	scoreCacheMiss prometheus.Counter
}

// New creates the collectors under the given namespace.
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	})

	m.storeRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_retries_total",
		Help:      "Store operations retried after a transient fault.",
	})

	m.scoreCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_cache_hits_total",
		Help:      "Score computations served from cache.",
	})

	m.scoreCacheMiss = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_cache_misses_total",
		Help:      "Score computations that missed the cache.",
	})

	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.inFlight,
		m.storeRetries, m.scoreCacheHits, m.scoreCacheMiss)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one completed request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementInFlight marks a request entering the handler.
func (m *Metrics) IncrementInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// DecrementInFlight marks a request leaving the handler.
func (m *Metrics) DecrementInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// RecordStoreRetry counts one retried store attempt.
func (m *Metrics) RecordStoreRetry() {
	if m == nil {
		return
	}
	m.storeRetries.Inc()
}

// RecordScoreCacheHit counts a score served from cache.
func (m *Metrics) RecordScoreCacheHit() {
	if m == nil {
		return
	}
	m.scoreCacheHits.Inc()
}

// RecordScoreCacheMiss counts a score computed fresh.
func (m *Metrics) RecordScoreCacheMiss() {
	if m == nil {
		return
	}
	m.scoreCacheMiss.Inc()
}
