package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initRuntimeMetrics registers process level series. Go runtime and process
// statistics come from the stock collectors and are sampled at scrape time.
func (r *Registry) initRuntimeMetrics() {
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "pathfinder"}),
		collectors.NewBuildInfoCollector(),
	)

	r.UptimeSeconds = promauto.With(r.registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pathfinder_uptime_seconds",
			Help: "Time since the registry was created in seconds",
		},
		func() float64 { return time.Since(r.startedAt).Seconds() },
	)

	r.JobWaiters = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathfinder_job_waiters",
			Help: "Long-poll requests blocked on a job result",
		},
	)

	r.JobEventsDropped = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathfinder_job_events_dropped",
			Help: "Job events discarded because a waiter was not reading",
		},
	)
}
