package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SlowQueryThreshold marks a path search as slow
const SlowQueryThreshold = time.Second

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordHTTPResponseSize records the size of a response body
func (r *Registry) RecordHTTPResponseSize(method, path string, size int) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(float64(size))
}

// IncRequestsInFlight and DecRequestsInFlight track concurrent requests
func (r *Registry) IncRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }
func (r *Registry) DecRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// RecordRateLimited counts a request rejected by the limiter
func (r *Registry) RecordRateLimited() {
	r.HTTPRateLimitedTotal.Inc()
}

// RecordStorageOperation records a graph store operation
func (r *Registry) RecordStorageOperation(operation, status string, duration time.Duration) {
	r.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StorageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateGraphSize sets the node and edge gauges
func (r *Registry) UpdateGraphSize(nodes, edges uint64) {
	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
}

// RecordPathQuery records one shortest path search. result is "found",
// "not_found" or "error"; pathLen is zero unless a path was found.
func (r *Registry) RecordPathQuery(mode, result string, duration time.Duration, nodesVisited, edgesScanned, pathLen int) {
	r.PathQueriesTotal.WithLabelValues(mode, result).Inc()
	r.PathQueryDuration.WithLabelValues(mode).Observe(duration.Seconds())
	r.PathQueryNodesVisited.WithLabelValues(mode).Observe(float64(nodesVisited))
	r.PathQueryEdgesScanned.WithLabelValues(mode).Observe(float64(edgesScanned))
	if pathLen > 0 {
		r.PathQueryLength.Observe(float64(pathLen))
	}

	if duration > SlowQueryThreshold {
		r.SlowPathQueries.WithLabelValues(mode).Inc()
	}
}

// RecordJobSubmitted implements jobs.MetricsRecorder
func (r *Registry) RecordJobSubmitted() {
	r.JobsSubmittedTotal.Inc()
}

// RecordJobRejected implements jobs.MetricsRecorder
func (r *Registry) RecordJobRejected(reason string) {
	r.JobsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordJobFinished implements jobs.MetricsRecorder
func (r *Registry) RecordJobFinished(status string, queueWait, runTime time.Duration) {
	r.JobsFinishedTotal.WithLabelValues(status).Inc()
	r.JobQueueWait.Observe(queueWait.Seconds())
	r.JobRunDuration.WithLabelValues(status).Observe(runTime.Seconds())
}

// RecordJobsEvicted implements jobs.MetricsRecorder
func (r *Registry) RecordJobsEvicted(count int) {
	r.JobsEvictedTotal.Add(float64(count))
}

// UpdateJobQueue sets the queue occupancy gauges
func (r *Registry) UpdateJobQueue(queued, active, pending int) {
	r.JobsQueued.Set(float64(queued))
	r.JobsActive.Set(float64(active))
	r.JobsPending.Set(float64(pending))
}

// UpdateJobEvents sets the in-process event bus gauges
func (r *Registry) UpdateJobEvents(waiters int, dropped uint64) {
	r.JobWaiters.Set(float64(waiters))
	r.JobEventsDropped.Set(float64(dropped))
}

// Handler serves the registry in Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
