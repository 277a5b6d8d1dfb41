package observability

import (
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	snapshotRefreshes *prometheus.CounterVec
	staleSnapshots    prometheus.Counter
	snapshotCustomers prometheus.Gauge
	rowsEmitted       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insights_operation_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_source_errors_total",
				Help: "Total errors from customer sources.",
			},
			[]string{"source"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		snapshotRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_snapshot_loads_total",
				Help: "Customer snapshot loads by outcome.",
			},
			[]string{"status"},
		),
		staleSnapshots: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "insights_stale_snapshots_served_total",
				Help: "Times the last good snapshot was served after a failed load.",
			},
		),
		snapshotCustomers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "insights_snapshot_customers",
				Help: "Customers in the current snapshot.",
			},
		),
		rowsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_contribution_rows_total",
				Help: "Contribution rows returned by analysis mode.",
			},
			[]string{"mode"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the source error counter.
func (m *Metrics) IncrExternalError(source string) {
	m.externalErrors.WithLabelValues(source).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordSnapshot records a successful snapshot load of n customers.
func (m *Metrics) RecordSnapshot(n int) {
	m.snapshotRefreshes.WithLabelValues("success").Inc()
	m.snapshotCustomers.Set(float64(n))
}

// IncrSnapshotFailure increments the failed snapshot load counter.
func (m *Metrics) IncrSnapshotFailure() {
	m.snapshotRefreshes.WithLabelValues("error").Inc()
}

// IncrStaleSnapshot increments the stale snapshot counter.
func (m *Metrics) IncrStaleSnapshot() {
	m.staleSnapshots.Inc()
}

// AddRows counts contribution rows returned by an analysis.
func (m *Metrics) AddRows(mode string, n int) {
	m.rowsEmitted.WithLabelValues(mode).Add(float64(n))
}

// GetInsightsSnapshot returns a snapshot of engine metrics suitable for the
// GET /v1/metrics/insights endpoint.
func (m *Metrics) GetInsightsSnapshot() *domain.InsightsMetrics {
	// Prometheus counters expose cumulative values.
	cacheHits := getCounterValue(m.cacheHits, "snapshot")
	cacheMisses := getCounterValue(m.cacheMisses, "snapshot")

	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	var sourceErrors float64
	for _, source := range []string{"analytics-api", "mysql"} {
		sourceErrors += getCounterValue(m.externalErrors, source)
	}

	return &domain.InsightsMetrics{
		SnapshotCustomers:  int64(readMetric(m.snapshotCustomers)),
		SnapshotRefreshes:  int64(getCounterValue(m.snapshotRefreshes, "success")),
		RefreshFailures:    int64(getCounterValue(m.snapshotRefreshes, "error")),
		StaleSnapshotsUsed: int64(readMetric(m.staleSnapshots)),
		SourceErrors:       int64(sourceErrors),
		CacheHitRate:       cacheHitRate,
		RowsEmitted:        int64(getCounterValue(m.rowsEmitted, domain.ModeSingle) + getCounterValue(m.rowsEmitted, domain.ModeMulti)),
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return readMetric(cv.WithLabelValues(label))
}

// readMetric reads the value of a single counter or gauge.
func readMetric(metric prometheus.Metric) float64 {
	m := &dto.Metric{}
	if err := metric.Write(m); err != nil {
		return 0
	}
	switch {
	case m.Counter != nil && m.Counter.Value != nil:
		return *m.Counter.Value
	case m.Gauge != nil && m.Gauge.Value != nil:
		return *m.Gauge.Value
	}
	return 0
}
