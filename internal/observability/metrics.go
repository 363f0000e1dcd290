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
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Upstream source metrics
	SourceFetchTotal   *prometheus.CounterVec
	SourceFetchLatency *prometheus.HistogramVec
	FallbackSourceUsed *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Refresh metrics
	PoolsRefreshed     prometheus.Gauge
	RefreshRunsTotal   *prometheus.CounterVec
	RefreshDuration    prometheus.Histogram
	LastRefreshSuccess prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Bridge metrics
	BridgeQuotesTotal     prometheus.Counter
	BridgeExecutionsTotal *prometheus.CounterVec

	// WebSocket metrics
	WSClientsConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "apyhub"
	}

	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		SourceFetchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sources",
			Name:      "fetch_total",
			Help:      "Total number of upstream fetches by source and outcome",
		}, []string{"source", "outcome"}),
		SourceFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sources",
			Name:      "fetch_latency_seconds",
			Help:      "Upstream fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		FallbackSourceUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sources",
			Name:      "fallback_source_used_total",
			Help:      "Total number of dashboard requests served by each source",
		}, []string{"source"}),

		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits by keyspace",
		}, []string{"keyspace"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses by keyspace",
		}, []string{"keyspace"}),

		PoolsRefreshed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "pools_last_count",
			Help:      "Number of pools produced by the last refresh",
		}),
		RefreshRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of pool refresh runs by status",
		}, []string{"status"}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Pool refresh duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120},
		}),
		LastRefreshSuccess: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of last successful pool refresh",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		BridgeQuotesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "quotes_total",
			Help:      "Total number of bridge quotes produced",
		}),
		BridgeExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "executions_total",
			Help:      "Total number of bridge executions by status",
		}, []string{"status"}),

		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients_connected",
			Help:      "Number of connected WebSocket clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSourceFetch records one upstream fetch attempt.
func RecordSourceFetch(source, outcome string, seconds float64) {
	DefaultMetrics.SourceFetchTotal.WithLabelValues(source, outcome).Inc()
	DefaultMetrics.SourceFetchLatency.WithLabelValues(source).Observe(seconds)
}

// RecordFallbackSource records which source ultimately served a dashboard
// request.
func RecordFallbackSource(source string) {
	DefaultMetrics.FallbackSourceUsed.WithLabelValues(source).Inc()
}

// RecordCacheLookup records a cache hit or miss for a keyspace.
func RecordCacheLookup(keyspace string, hit bool) {
	if hit {
		DefaultMetrics.CacheHits.WithLabelValues(keyspace).Inc()
		return
	}
	DefaultMetrics.CacheMisses.WithLabelValues(keyspace).Inc()
}

// RecordRefresh records a pool refresh run.
func RecordRefresh(status string, poolCount int, seconds float64) {
	DefaultMetrics.RefreshRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RefreshDuration.Observe(seconds)
	if status == "success" {
		DefaultMetrics.PoolsRefreshed.Set(float64(poolCount))
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordBridgeExecution records a bridge execution by resulting status.
func RecordBridgeExecution(status string) {
	DefaultMetrics.BridgeExecutionsTotal.WithLabelValues(status).Inc()
}
