package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/health"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
)

// DefaultMetricsInterval is how often gauges are refreshed by RunMetricsUpdater
const DefaultMetricsInterval = 15 * time.Second

func (s *Server) registerHealthChecks() {
	store := health.StoreCheck(s.config.Backend, s.graph)
	queue := health.JobQueueCheck(s.queueState)
	memory := health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	})

	s.health.RegisterCheck("graph_store", store)
	s.health.RegisterCheck("job_queue", queue)
	s.health.RegisterCheck("memory", memory)

	s.health.RegisterReadinessCheck("graph_store", store)
	s.health.RegisterReadinessCheck("job_queue", queue)

	s.health.RegisterLivenessCheck("process", health.SimpleCheck("process"))
}

func (s *Server) queueState(ctx context.Context) (health.QueueState, error) {
	st, err := s.queue.Stats(ctx)
	if err != nil {
		return health.QueueState{}, err
	}
	return health.QueueState{
		Closed:   s.queue.Closed(),
		Queued:   st.Queued,
		Capacity: st.Backlog,
		Active:   st.Active,
		Pending:  st.Pending,
	}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Get(func() {
		s.health.HTTPHandler()(w, r)
	}).NotAllowed()
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Get(func() {
		s.health.LivenessHandler()(w, r)
	}).NotAllowed()
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Get(func() {
		s.health.ReadinessHandler()(w, r)
	}).NotAllowed()
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Get(func() {
		s.UpdateMetrics(r.Context())
		s.metrics.Handler().ServeHTTP(w, r)
	}).NotAllowed()
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Get(func() {
		graphStats, err := s.graph.Stats(r.Context())
		if err != nil {
			s.respondInternal(w, r, "graph stats", err)
			return
		}
		queueStats, err := s.queue.Stats(r.Context())
		if err != nil {
			s.respondInternal(w, r, "queue stats", err)
			return
		}

		s.respondJSON(w, http.StatusOK, StatsResponse{
			Backend: s.config.Backend,
			Nodes:   graphStats.NodeCount,
			Edges:   graphStats.EdgeCount,
			Jobs:    queueStats,
			Uptime:  uptime(s.startTime),
		})
	}).NotAllowed()
}

// UpdateMetrics refreshes the graph and queue gauges
func (s *Server) UpdateMetrics(ctx context.Context) {
	if st, err := s.graph.Stats(ctx); err == nil {
		s.metrics.UpdateGraphSize(st.NodeCount, st.EdgeCount)
	} else {
		s.logger.Warn("failed to read graph stats", logging.Error(err))
	}

	if st, err := s.queue.Stats(ctx); err == nil {
		s.metrics.UpdateJobQueue(st.Queued, st.Active, st.Pending)
		s.metrics.UpdateJobEvents(st.Waiters, st.DroppedEvents)
	} else {
		s.logger.Warn("failed to read job stats", logging.Error(err))
	}
}

// RunMetricsUpdater refreshes gauges every interval until ctx is done
func (s *Server) RunMetricsUpdater(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultMetricsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.UpdateMetrics(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.UpdateMetrics(ctx)
		}
	}
}
