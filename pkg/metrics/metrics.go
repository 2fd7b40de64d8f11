// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping. Every recording helper is
// safe to call on a nil *Metrics so components can run without metrics in
// tests and embedded use.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	EventsAppliedTotal    *prometheus.CounterVec
	EventsRejectedTotal   *prometheus.CounterVec
	SourceErrorsTotal     *prometheus.CounterVec
	IndexedDocuments      prometheus.Gauge
	IndexKeys             prometheus.Gauge
	IndexState            prometheus.Gauge
	SearchQueriesTotal    *prometheus.CounterVec
	SearchLatency         *prometheus.HistogramVec
	SearchResultsCount    prometheus.Histogram
	SearchDanglingIDs     prometheus.Counter
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	StaleResponsesTotal   prometheus.Counter
	AnalyticsDroppedTotal prometheus.Counter
}

// New creates all collectors and registers them on reg. Pass
// prometheus.DefaultRegisterer in binaries and prometheus.NewRegistry() in
// tests.
func New(reg prometheus.Registerer) *Metrics {
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
		EventsAppliedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_events_applied_total",
				Help: "Mutation events applied to the index by source and operation.",
			},
			[]string{"source", "op"},
		),
		EventsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_events_rejected_total",
				Help: "Mutation events rejected by the coordinator by source and reason.",
			},
			[]string{"source", "reason"},
		),
		SourceErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_errors_total",
				Help: "Source adapter failures by source.",
			},
			[]string{"source"},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Number of documents currently held in the document store.",
			},
		),
		IndexKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_keys",
				Help: "Number of posting lists (terms and prefixes) in the inverted index.",
			},
		),
		IndexState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_state",
				Help: "Coordinator lifecycle state (0=idle, 1=indexing, 2=ready).",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, empty, not_ready, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		SearchDanglingIDs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_dangling_ids_total",
				Help: "Indexed ids that had no document store entry at query time.",
			},
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
		StaleResponsesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "session_stale_responses_total",
				Help: "Search responses discarded because a newer query was issued.",
			},
		),
		AnalyticsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Analytics events dropped because the buffer was full.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.EventsAppliedTotal,
		m.EventsRejectedTotal,
		m.SourceErrorsTotal,
		m.IndexedDocuments,
		m.IndexKeys,
		m.IndexState,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SearchDanglingIDs,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.StaleResponsesTotal,
		m.AnalyticsDroppedTotal,
	)

	return m
}

// TrackInFlight raises the in-flight gauge and returns the func that lowers
// it again.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.HTTPRequestsInFlight.Inc()
	return m.HTTPRequestsInFlight.Dec
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveEvent counts one applied mutation.
func (m *Metrics) ObserveEvent(source, op string) {
	if m == nil {
		return
	}
	m.EventsAppliedTotal.WithLabelValues(source, op).Inc()
}

// ObserveRejected counts one rejected mutation.
func (m *Metrics) ObserveRejected(source, reason string) {
	if m == nil {
		return
	}
	m.EventsRejectedTotal.WithLabelValues(source, reason).Inc()
}

// ObserveSourceError counts one adapter failure.
func (m *Metrics) ObserveSourceError(source string) {
	if m == nil {
		return
	}
	m.SourceErrorsTotal.WithLabelValues(source).Inc()
}

// SetIndexSize records the store and index sizes.
func (m *Metrics) SetIndexSize(docs, keys int) {
	if m == nil {
		return
	}
	m.IndexedDocuments.Set(float64(docs))
	m.IndexKeys.Set(float64(keys))
}

// SetIndexState records the coordinator lifecycle state.
func (m *Metrics) SetIndexState(state int) {
	if m == nil {
		return
	}
	m.IndexState.Set(float64(state))
}

// ObserveSearch records one executed query.
func (m *Metrics) ObserveSearch(resultType, cacheStatus string, results int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

// ObserveDangling counts indexed ids missing from the store.
func (m *Metrics) ObserveDangling(n int) {
	if m == nil || n == 0 {
		return
	}
	m.SearchDanglingIDs.Add(float64(n))
}

// ObserveCache counts a cache lookup outcome.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// ObserveStale counts a discarded session response.
func (m *Metrics) ObserveStale() {
	if m == nil {
		return
	}
	m.StaleResponsesTotal.Inc()
}

// ObserveAnalyticsDropped counts an analytics event lost to backpressure.
func (m *Metrics) ObserveAnalyticsDropped() {
	if m == nil {
		return
	}
	m.AnalyticsDroppedTotal.Inc()
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
