// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Listing cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheStale  prometheus.Counter
	CacheSize   prometheus.Gauge
	CacheAge    prometheus.Gauge

	// Refresh metrics
	RefreshRunsTotal *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram

	// Normalization metrics
	TokensNormalized prometheus.Counter
	TokensDropped    prometheus.Counter

	// Upstream metrics
	UpstreamLatency *prometheus.HistogramVec
	PriceLookups    *prometheus.CounterVec

	// Persistence metrics
	SnapshotsPersisted prometheus.Counter
	CandlesPersisted   prometheus.Counter
	PersistErrors      *prometheus.CounterVec

	// Stream metrics
	StreamClients prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "forseti_scan"
	}

	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "cache_hits_total",
			Help:      "Total number of listing requests served from the cache slot",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "cache_misses_total",
			Help:      "Total number of listing requests that triggered a refresh",
		}),
		CacheStale: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "cache_stale_served_total",
			Help:      "Total number of responses served from an expired slot after a failed refresh",
		}),
		CacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "cache_tokens",
			Help:      "Number of tokens in the current cache slot",
		}),
		CacheAge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "cache_age_seconds",
			Help:      "Age of the current cache slot in seconds",
		}),

		RefreshRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "refresh_runs_total",
			Help:      "Total number of cache refresh cycles by status",
		}, []string{"status"}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "refresh_duration_seconds",
			Help:      "Cache refresh cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		TokensNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "tokens_total",
			Help:      "Total number of tokens normalized successfully",
		}),
		TokensDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "tokens_dropped_total",
			Help:      "Total number of tokens dropped due to normalization failure",
		}),

		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_latency_seconds",
			Help:      "Upstream API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		PriceLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "price_lookups_total",
			Help:      "Total number of BTC price lookups by outcome",
		}, []string{"outcome"}),

		SnapshotsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshots_persisted_total",
			Help:      "Total number of risk snapshots persisted",
		}),
		CandlesPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "candles_persisted_total",
			Help:      "Total number of candles persisted",
		}),
		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "persist_errors_total",
			Help:      "Total number of persistence errors by store",
		}, []string{"store"}),

		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected websocket stream clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.CacheMisses.Inc()
}

// RecordStaleServed increments the stale-slot-served counter.
func RecordStaleServed() {
	DefaultMetrics.CacheStale.Inc()
}

// RecordRefresh records one refresh cycle.
func RecordRefresh(status string, durationSeconds float64) {
	DefaultMetrics.RefreshRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RefreshDuration.Observe(durationSeconds)
}

// UpdateCacheSlot updates the cache slot gauges.
func UpdateCacheSlot(tokens int, ageSeconds float64) {
	DefaultMetrics.CacheSize.Set(float64(tokens))
	DefaultMetrics.CacheAge.Set(ageSeconds)
}

// RecordNormalized increments the tokens normalized counter.
func RecordNormalized() {
	DefaultMetrics.TokensNormalized.Inc()
}

// RecordDropped increments the tokens dropped counter.
func RecordDropped() {
	DefaultMetrics.TokensDropped.Inc()
}

// RecordUpstreamLatency records one upstream request.
func RecordUpstreamLatency(endpoint string, seconds float64) {
	DefaultMetrics.UpstreamLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordPriceLookup records one price lookup by outcome
// ("cached", "refreshed", "degraded").
func RecordPriceLookup(outcome string) {
	DefaultMetrics.PriceLookups.WithLabelValues(outcome).Inc()
}

// RecordSnapshotsPersisted adds to the snapshots persisted counter.
func RecordSnapshotsPersisted(n int) {
	DefaultMetrics.SnapshotsPersisted.Add(float64(n))
}

// RecordCandlesPersisted adds to the candles persisted counter.
func RecordCandlesPersisted(n int) {
	DefaultMetrics.CandlesPersisted.Add(float64(n))
}

// RecordPersistError records a persistence error for a store.
func RecordPersistError(store string) {
	DefaultMetrics.PersistErrors.WithLabelValues(store).Inc()
}

// UpdateStreamClients sets the connected stream client gauge.
func UpdateStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}
