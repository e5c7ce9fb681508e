// Package metrics defines the Prometheus collectors for the indexer and
// lookup services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for both services.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ObjectsIndexedTotal  prometheus.Counter
	ObjectsFailedTotal   *prometheus.CounterVec
	TermsExtractedTotal  prometheus.Counter
	ObjectsInFlight      prometheus.Gauge
	IndexRunsTotal       *prometheus.CounterVec
	IndexRunDuration     *prometheus.HistogramVec
	IndexTermCount       prometheus.Gauge
	LookupsTotal         *prometheus.CounterVec
	LookupLatency        *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg, or with the
// default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ObjectsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "objects_indexed_total",
				Help: "Total objects whose terms were merged into an index.",
			},
		),
		ObjectsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objects_failed_total",
				Help: "Total objects that could not be indexed, by error kind (storage_read, decode, timeout, other).",
			},
			[]string{"kind"},
		),
		TermsExtractedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "terms_extracted_total",
				Help: "Total terms extracted from documents, duplicates included.",
			},
		),
		ObjectsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "objects_in_flight",
				Help: "Number of objects currently being read and tokenized.",
			},
		),
		IndexRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_runs_total",
				Help: "Total multi-object indexing runs by status.",
			},
			[]string{"status"},
		),
		IndexRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_run_duration_seconds",
				Help:    "Duration of multi-object indexing runs in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"status"},
		),
		IndexTermCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Distinct terms in the most recently built or loaded index.",
			},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookups_total",
				Help: "Total term lookups by result type (hit, miss, zero_result, error).",
			},
			[]string{"result_type"},
		),
		LookupLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lookup_latency_seconds",
				Help:    "Term lookup latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ObjectsIndexedTotal,
		m.ObjectsFailedTotal,
		m.TermsExtractedTotal,
		m.ObjectsInFlight,
		m.IndexRunsTotal,
		m.IndexRunDuration,
		m.IndexTermCount,
		m.LookupsTotal,
		m.LookupLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
