package api

import (
	"net"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/api/middleware"
	"github.com/dd0wney/cluso-pathfinder/pkg/health"
	"github.com/dd0wney/cluso-pathfinder/pkg/jobs"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/metrics"
	"github.com/dd0wney/cluso-pathfinder/pkg/storage"
)

const (
	// DefaultMaxBodyBytes caps request bodies when Config leaves it unset
	DefaultMaxBodyBytes = 1 << 20

	// MaxResultWait bounds the wait parameter of get-slow-path-result
	MaxResultWait = 30 * time.Second
)

// Config carries the HTTP-facing knobs of the server
type Config struct {
	// Backend names the graph store in health output
	Backend string

	MaxBodyBytes int64

	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// TrustedProxies may set X-Forwarded-For / X-Real-IP for rate limiting
	TrustedProxies []*net.IPNet

	Logger  logging.Logger
	Metrics *metrics.Registry

	// Health overrides the default checker; checks are still registered on it
	Health *health.HealthChecker
}

// Server represents the HTTP API server
type Server struct {
	graph   storage.GraphStore
	queue   *jobs.Queue
	metrics *metrics.Registry
	health  *health.HealthChecker
	limiter *middleware.RateLimiter
	logger  logging.Logger
	config  Config

	startTime time.Time
}
