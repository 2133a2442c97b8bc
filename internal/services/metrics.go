package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the ingestion service
type Metrics struct {
	// Ingestion metrics
	EventsIngested     *prometheus.CounterVec
	EventInsertLatency prometheus.Histogram
	FacesEnrolled      prometheus.Counter

	// Storage metrics
	StorageWriteFailures *prometheus.CounterVec
	StoreHealthy         prometheus.Gauge
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Events by emotion (counter - only goes up)
		EventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facewatch_events_ingested_total",
			Help: "Total number of telemetry events accepted by emotion label",
		}, []string{"emotion"}),

		// Event insert latency histogram
		EventInsertLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "facewatch_event_insert_duration_seconds",
			Help:    "Event persistence latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		FacesEnrolled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facewatch_faces_enrolled_total",
			Help: "Total number of face enrollment records created",
		}),

		// Storage write failures by backend and operation
		StorageWriteFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facewatch_storage_write_failures_total",
			Help: "Total number of failed storage writes by backend and operation",
		}, []string{"backend", "operation"}),

		// Backend health (1 healthy, 0 unhealthy), updated by the health job
		StoreHealthy: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "facewatch_store_healthy",
			Help: "Whether the active storage backend answered the last ping",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (may be nil in tests)
func GetMetrics() *Metrics {
	return globalMetrics
}
