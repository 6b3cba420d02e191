package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Storage metrics
var (
	// StoreOpsTotal tracks every get/put/delete issued against the cache store
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathercache_store_ops_total",
			Help: "Total number of cache store operations",
		},
		[]string{"op", "backend", "status"},
	)

	// StoreOpDuration tracks the duration of store operations
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weathercache_store_op_duration_seconds",
			Help:    "Duration of cache store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "backend"},
	)

	DBConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weathercache_db_connections_open",
			Help: "Number of established connections both in use and idle",
		},
		[]string{"backend"},
	)

	DBConnectionsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weathercache_db_connections_in_use",
			Help: "Number of connections currently in use",
		},
		[]string{"backend"},
	)
)

// Remote source metrics
var (
	RemoteFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathercache_remote_fetches_total",
			Help: "Total number of day summary requests sent to the remote source",
		},
		[]string{"status"},
	)

	RemoteFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weathercache_remote_fetch_duration_seconds",
			Help:    "Duration of remote day summary requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weathercache_remote_breaker_state",
			Help: "Circuit breaker state of the remote source client",
		},
	)
)

// Range walk metrics
var (
	RangeWalksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathercache_range_walks_total",
			Help: "Total number of range walks by mode and final state",
		},
		[]string{"mode", "state"},
	)

	// CacheLookupsTotal counts per-day cache outcomes: hit, miss or skipped
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathercache_cache_lookups_total",
			Help: "Per-day cache outcomes during range walks",
		},
		[]string{"mode", "outcome"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathercache_events_published_total",
			Help: "Total number of record events written to the stream",
		},
		[]string{"status"},
	)

	// AppInfo provides static information about the application
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weathercache_app_info",
			Help: "Application information (always 1)",
		},
	)

	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weathercache_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppInfo.Set(1)
	AppStartTime.SetToCurrentTime()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordStoreOp records one store operation
func RecordStoreOp(op, backend string, duration time.Duration, err error) {
	StoreOpsTotal.WithLabelValues(op, backend, status(err)).Inc()
	StoreOpDuration.WithLabelValues(op, backend).Observe(duration.Seconds())
}

// RecordRemoteFetch records one remote request. code is the HTTP status or 0.
func RecordRemoteFetch(code int, duration time.Duration) {
	label := "transport_error"
	switch {
	case code >= 200 && code < 300:
		label = "ok"
	case code >= 400 && code < 500:
		label = "client_error"
	case code >= 500:
		label = "server_error"
	}
	RemoteFetchesTotal.WithLabelValues(label).Inc()
	RemoteFetchDuration.Observe(duration.Seconds())
}

func RecordRangeWalk(mode, state string) {
	RangeWalksTotal.WithLabelValues(mode, state).Inc()
}

func RecordCacheLookup(mode, outcome string) {
	CacheLookupsTotal.WithLabelValues(mode, outcome).Inc()
}

func RecordEventPublished(err error) {
	EventsPublishedTotal.WithLabelValues(status(err)).Inc()
}

// UpdateDBConnectionStats updates connection pool statistics for a SQL backend
func UpdateDBConnectionStats(backend string, open, inUse int) {
	DBConnectionsOpen.WithLabelValues(backend).Set(float64(open))
	DBConnectionsInUse.WithLabelValues(backend).Set(float64(inUse))
}
