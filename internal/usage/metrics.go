// Package usage exposes Prometheus metrics for the turn pipeline and HTTP
// surface.
package usage

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// httpRequestsTotal counts the total number of HTTP requests processed.
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chessmate_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDurationSeconds tracks the duration of HTTP requests.
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chessmate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// turnsTotal counts processed turns by intent and terminal outcome.
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chessmate_turns_total",
			Help: "Total conversational turns grouped by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	// turnDurationSeconds tracks end-to-end turn latency by outcome.
	turnDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chessmate_turn_duration_seconds",
			Help:    "End-to-end turn processing latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// retrievalRequestsTotal counts backend searches by index kind and status.
	retrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chessmate_retrieval_requests_total",
			Help: "Total retrieval backend searches grouped by kind and status",
		},
		[]string{"kind", "status"},
	)

	// Query cache metrics.
	queryCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chessmate_query_cache_hits_total",
			Help: "Total number of query cache hits",
		},
	)
	queryCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chessmate_query_cache_misses_total",
			Help: "Total number of query cache misses",
		},
	)

	// ledgerDegraded reports whether the ledger cache is running on the
	// in-process fallback instead of Redis.
	ledgerDegraded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chessmate_ledger_cache_degraded",
			Help: "1 when the session cache runs in-process instead of Redis",
		},
	)

	// metricsRegistered ensures metrics are only registered once.
	metricsRegistered atomic.Bool
	metricsEnabled    atomic.Bool
)

// SetMetricsEnabled toggles Prometheus metrics collection.
func SetMetricsEnabled(enabled bool) {
	metricsEnabled.Store(enabled)
}

// IsMetricsEnabled reports whether metrics are enabled.
func IsMetricsEnabled() bool {
	return metricsEnabled.Load()
}

// RegisterMetrics registers all Prometheus metrics.
// It is safe to call multiple times; metrics will only be registered once.
func RegisterMetrics() {
	if !metricsRegistered.CompareAndSwap(false, true) {
		return
	}

	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		turnsTotal,
		turnDurationSeconds,
		retrievalRequestsTotal,
		queryCacheHitsTotal,
		queryCacheMissesTotal,
		ledgerDegraded,
	)
}

// ObserveTurn records one completed turn.
func ObserveTurn(intent, outcome string, took time.Duration) {
	if !IsMetricsEnabled() {
		return
	}
	turnsTotal.WithLabelValues(intent, outcome).Inc()
	turnDurationSeconds.WithLabelValues(outcome).Observe(took.Seconds())
}

// ObserveRetrieval records one backend search.
func ObserveRetrieval(kind string, err error) {
	if !IsMetricsEnabled() {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	retrievalRequestsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveQueryCache records a query cache lookup.
func ObserveQueryCache(hit bool) {
	if !IsMetricsEnabled() {
		return
	}
	if hit {
		queryCacheHitsTotal.Inc()
	} else {
		queryCacheMissesTotal.Inc()
	}
}

// SetLedgerDegraded flags whether the session cache is in fallback mode.
func SetLedgerDegraded(degraded bool) {
	if !IsMetricsEnabled() {
		return
	}
	if degraded {
		ledgerDegraded.Set(1)
	} else {
		ledgerDegraded.Set(0)
	}
}

// PrometheusMiddleware returns a Gin middleware that collects request count
// and duration for every route except the metrics endpoint itself.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsMetricsEnabled() {
			c.Next()
			return
		}
		RegisterMetrics()

		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDurationSeconds.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler returns the Prometheus scrape handler wrapped for gin.
func MetricsHandler() gin.HandlerFunc {
	RegisterMetrics()
	return gin.WrapH(promhttp.Handler())
}
