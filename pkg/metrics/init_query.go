package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQueryMetrics() {
	r.PathQueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathfinder_path_queries_total",
			Help: "Shortest path queries by mode and result",
		},
		[]string{"mode", "result"},
	)

	r.PathQueryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pathfinder_path_query_duration_seconds",
			Help:    "Shortest path search time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	r.PathQueryNodesVisited = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pathfinder_path_query_nodes_visited",
			Help:    "Nodes expanded per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"mode"},
	)

	r.PathQueryEdgesScanned = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pathfinder_path_query_edges_scanned",
			Help:    "Edges examined per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"mode"},
	)

	r.PathQueryLength = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pathfinder_path_length_nodes",
			Help:    "Number of nodes in found paths",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
		},
	)

	r.SlowPathQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathfinder_slow_path_queries_total",
			Help: "Searches that took longer than one second",
		},
		[]string{"mode"},
	)
}
