package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/api/middleware"
	"github.com/dd0wney/cluso-pathfinder/pkg/health"
	"github.com/dd0wney/cluso-pathfinder/pkg/jobs"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/metrics"
	"github.com/dd0wney/cluso-pathfinder/pkg/storage"
)

// NewServer creates a new API server over graph and queue
func NewServer(graph storage.GraphStore, queue *jobs.Queue, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewRegistry()
	}
	if cfg.Health == nil {
		cfg.Health = health.NewHealthChecker()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}

	s := &Server{
		graph:     graph,
		queue:     queue,
		metrics:   cfg.Metrics,
		health:    cfg.Health,
		logger:    cfg.Logger.With(logging.Component("api")),
		config:    cfg,
		startTime: time.Now(),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit) + 1
		}
		limitCfg := middleware.DefaultRateLimitConfig()
		limitCfg.RequestsPerSecond = cfg.RateLimit
		limitCfg.BurstSize = burst
		s.limiter = middleware.NewRateLimiter(limitCfg, s.logger)
	}

	s.registerHealthChecks()
	return s
}

// Handler returns the full middleware stack around the route table
func (s *Server) Handler() http.Handler {
	onLimited := func(*http.Request, string) { s.metrics.RecordRateLimited() }

	return middleware.Chain(s.routes(),
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.Metrics(s.metrics),
		middleware.RateLimit(s.limiter, middleware.ClientIP(s.config.TrustedProxies), onLimited),
		middleware.BodySizeLimit(s.config.MaxBodyBytes),
	)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Path finding
	s.handle(mux, "/create-node", s.handleCreateNode)
	s.handle(mux, "/connect-nodes", s.handleConnectNodes)
	s.handle(mux, "/find-path", s.handleFindPath)
	s.handle(mux, "/slow-find-path", s.handleSlowFindPath)
	s.handle(mux, "/get-slow-path-result", s.handleSlowPathResult)

	// Operations
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/stats", s.handleStats)

	return mux
}

// handle registers path with and without its trailing slash
func (s *Server) handle(mux *http.ServeMux, path string, h http.HandlerFunc) {
	mux.HandleFunc(path+"/{$}", h)
	mux.HandleFunc(path, h)
}

// HealthChecker exposes the checker so callers can add checks such as the event bus
func (s *Server) HealthChecker() *health.HealthChecker {
	return s.health
}

// Metrics returns the registry the server records into
func (s *Server) Metrics() *metrics.Registry {
	return s.metrics
}

// Close stops background work owned by the server. The graph and queue are
// owned by the caller.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
