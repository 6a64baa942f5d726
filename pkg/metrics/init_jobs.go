package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initJobMetrics() {
	r.JobsSubmittedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathfinder_jobs_submitted_total",
			Help: "Jobs accepted by the queue",
		},
	)

	r.JobsRejectedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathfinder_jobs_rejected_total",
			Help: "Jobs refused at submission",
		},
		[]string{"reason"},
	)

	r.JobsFinishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathfinder_jobs_finished_total",
			Help: "Jobs that reached a terminal status",
		},
		[]string{"status"},
	)

	r.JobsEvictedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathfinder_jobs_evicted_total",
			Help: "Terminal jobs removed by retention",
		},
	)

	r.JobQueueWait = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pathfinder_job_queue_wait_seconds",
			Help:    "Time between submission and a worker picking the job up",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	r.JobRunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pathfinder_job_run_duration_seconds",
			Help:    "Worker time per job including the processing delay",
			Buckets: []float64{.01, .1, .5, 1, 2.5, 5, 7.5, 10, 30},
		},
		[]string{"status"},
	)

	r.JobsQueued = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathfinder_jobs_queued",
			Help: "Jobs waiting for a worker",
		},
	)

	r.JobsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathfinder_jobs_active",
			Help: "Jobs currently running",
		},
	)

	r.JobsPending = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathfinder_jobs_pending",
			Help: "Jobs in PENDING state in the job store",
		},
	)
}
