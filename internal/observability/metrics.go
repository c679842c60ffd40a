// Package observability holds the Prometheus collectors and OpenTelemetry
// tracing setup shared by the forum API.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forum_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CommentMutations counts comment tree writes by kind (create, update, delete).
	CommentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_comment_mutations_total",
		Help: "Total number of comment mutations by kind",
	}, []string{"kind"})

	// StorageOperations counts storage backend calls by scheme, operation and result.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_storage_operations_total",
		Help: "Total number of storage backend operations",
	}, []string{"scheme", "operation", "result"})

	// URLResolveFailures counts response fields left unsigned because resolution failed.
	URLResolveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_storage_url_resolve_failures_total",
		Help: "Total number of storage references that could not be resolved in responses",
	}, []string{"field"})

	// EventsPublished counts domain events handed to the broker by routing key and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_events_published_total",
		Help: "Total number of domain events published",
	}, []string{"routing_key", "result"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics records query latency for one repository.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a DatabaseMetrics labelled with table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}

// RecordStorage increments the storage operation counter.
func RecordStorage(scheme, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StorageOperations.WithLabelValues(scheme, operation, result).Inc()
}
