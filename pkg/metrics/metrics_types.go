package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec
	HTTPRateLimitedTotal  prometheus.Counter

	// Graph Store Metrics
	GraphNodesTotal          prometheus.Gauge
	GraphEdgesTotal          prometheus.Gauge
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Path Query Metrics
	PathQueriesTotal      *prometheus.CounterVec
	PathQueryDuration     *prometheus.HistogramVec
	PathQueryNodesVisited *prometheus.HistogramVec
	PathQueryEdgesScanned *prometheus.HistogramVec
	PathQueryLength       prometheus.Histogram
	SlowPathQueries       *prometheus.CounterVec

	// Job Queue Metrics
	JobsSubmittedTotal prometheus.Counter
	JobsRejectedTotal  *prometheus.CounterVec
	JobsFinishedTotal  *prometheus.CounterVec
	JobsEvictedTotal   prometheus.Counter
	JobQueueWait       prometheus.Histogram
	JobRunDuration     *prometheus.HistogramVec
	JobsQueued         prometheus.Gauge
	JobsActive         prometheus.Gauge
	JobsPending        prometheus.Gauge

	// Runtime Metrics
	UptimeSeconds    prometheus.GaugeFunc
	JobWaiters       prometheus.Gauge
	JobEventsDropped prometheus.Gauge

	registry  *prometheus.Registry
	startedAt time.Time
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startedAt: time.Now(),
	}

	r.initHTTPMetrics()
	r.initStorageMetrics()
	r.initQueryMetrics()
	r.initJobMetrics()
	r.initRuntimeMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
