package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the reporting engine.
type Metrics struct {
	// Incremental aggregation metrics
	OrdersApplied  *prometheus.CounterVec
	RevenueApplied *prometheus.CounterVec
	DuplicateSkips prometheus.Counter
	ApplyFailures  *prometheus.CounterVec

	// Recomputation metrics
	RecomputeRuns     *prometheus.CounterVec
	RecomputeDuration prometheus.Histogram
	RecomputeOrders   prometheus.Gauge

	// Dashboard metrics
	DashboardQueries  *prometheus.CounterVec
	DashboardCacheHit *prometheus.CounterVec

	// System metrics
	DBConnections *prometheus.GaugeVec
	RateLimitHits *prometheus.CounterVec
}

var (
	// DefaultMetrics is the global metrics instance
	DefaultMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OrdersApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_applied_total",
				Help:      "Orders folded into aggregates by the incremental path",
			},
			[]string{"source"},
		),
		RevenueApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revenue_applied_total",
				Help:      "Revenue folded into aggregates by the incremental path",
			},
			[]string{"source"},
		),
		DuplicateSkips: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_skips_total",
				Help:      "Apply calls skipped by the idempotency marker",
			},
		),
		ApplyFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "apply_failures_total",
				Help:      "Failed incremental apply calls by stage",
			},
			[]string{"stage"},
		),

		RecomputeRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recompute_runs_total",
				Help:      "Batch recomputation runs by outcome",
			},
			[]string{"status"},
		),
		RecomputeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recompute_duration_seconds",
				Help:      "Batch recomputation run duration",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
		),
		RecomputeOrders: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "recompute_orders_scanned",
				Help:      "Orders scanned by the most recent recomputation run",
			},
		),

		DashboardQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dashboard_queries_total",
				Help:      "Dashboard report queries by report type",
			},
			[]string{"report"},
		),
		DashboardCacheHit: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dashboard_cache_hits_total",
				Help:      "Dashboard cache lookups by report type and outcome",
			},
			[]string{"report", "hit"},
		),

		DBConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint"},
		),
	}

	DefaultMetrics = m
	return m
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// The Record helpers tolerate a nil receiver so engine code can run
// without a registered metrics instance (tests, embedded use).

// RecordOrderApplied records one order folded in incrementally.
func (m *Metrics) RecordOrderApplied(source string, total float64) {
	if m == nil {
		return
	}
	m.OrdersApplied.WithLabelValues(source).Inc()
	if total > 0 {
		m.RevenueApplied.WithLabelValues(source).Add(total)
	}
}

// RecordDuplicateSkip records an apply short-circuited by the marker.
func (m *Metrics) RecordDuplicateSkip() {
	if m == nil {
		return
	}
	m.DuplicateSkips.Inc()
}

// RecordApplyFailure records a failed apply by pipeline stage.
func (m *Metrics) RecordApplyFailure(stage string) {
	if m == nil {
		return
	}
	m.ApplyFailures.WithLabelValues(stage).Inc()
}

// RecordRecompute records a completed recomputation run.
func (m *Metrics) RecordRecompute(status string, duration time.Duration, ordersScanned int) {
	if m == nil {
		return
	}
	m.RecomputeRuns.WithLabelValues(status).Inc()
	m.RecomputeDuration.Observe(duration.Seconds())
	m.RecomputeOrders.Set(float64(ordersScanned))
}

// RecordDashboardQuery records a dashboard query and its cache outcome.
func (m *Metrics) RecordDashboardQuery(report string, cacheHit bool) {
	if m == nil {
		return
	}
	m.DashboardQueries.WithLabelValues(report).Inc()
	hit := "false"
	if cacheHit {
		hit = "true"
	}
	m.DashboardCacheHit.WithLabelValues(report, hit).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	if m == nil {
		return
	}
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}
