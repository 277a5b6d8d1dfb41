package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// InsightsMetrics is returned by GET /v1/metrics/insights.
type InsightsMetrics struct {
	SnapshotCustomers  int64   `json:"snapshotCustomers"`
	SnapshotRefreshes  int64   `json:"snapshotRefreshes"`
	RefreshFailures    int64   `json:"refreshFailures"`
	StaleSnapshotsUsed int64   `json:"staleSnapshotsUsed"`
	SourceErrors       int64   `json:"sourceErrors"`
	CacheHitRate       float64 `json:"cacheHitRate"`
	RowsEmitted        int64   `json:"rowsEmitted"`
	Period             string  `json:"period"`
}
