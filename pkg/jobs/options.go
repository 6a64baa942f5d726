package jobs

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
)

const (
	DefaultWorkers         = 4
	DefaultBacklog         = 1024
	DefaultProcessingDelay = 5 * time.Second
	DefaultJanitorInterval = time.Minute
)

// MetricsRecorder receives queue measurements. Implemented by metrics.Registry.
type MetricsRecorder interface {
	RecordJobSubmitted()
	RecordJobRejected(reason string)
	RecordJobFinished(status string, queueWait, runTime time.Duration)
	RecordJobsEvicted(count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordJobSubmitted() {}
func (nopRecorder) RecordJobRejected(string) {}
func (nopRecorder) RecordJobFinished(string, time.Duration, time.Duration) {}
func (nopRecorder) RecordJobsEvicted(int) {}

// Options configures a Queue
type Options struct {
	Workers         int
	Backlog         int
	ProcessingDelay time.Duration

	// Retention evicts terminal jobs this long after completion. Zero keeps them forever.
	Retention       time.Duration
	JanitorInterval time.Duration

	// UnknownAsPending makes Poll report PENDING instead of UNKNOWN for unissued handles
	UnknownAsPending bool

	Logger     logging.Logger
	Publishers []EventPublisher
	Metrics    MetricsRecorder
	Clock      func() time.Time
}

// Option mutates Options
type Option func(*Options)

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		Workers:         DefaultWorkers,
		Backlog:         DefaultBacklog,
		ProcessingDelay: DefaultProcessingDelay,
		JanitorInterval: DefaultJanitorInterval,
		Logger:          logging.NewNopLogger(),
		Metrics:         nopRecorder{},
		Clock:           time.Now,
	}
}

func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

func WithBacklog(n int) Option {
	return func(o *Options) { o.Backlog = n }
}

func WithProcessingDelay(d time.Duration) Option {
	return func(o *Options) { o.ProcessingDelay = d }
}

// WithRetention enables eviction of terminal jobs older than ttl, checked every interval
func WithRetention(ttl, interval time.Duration) Option {
	return func(o *Options) {
		o.Retention = ttl
		if interval > 0 {
			o.JanitorInterval = interval
		}
	}
}

func WithUnknownAsPending(enabled bool) Option {
	return func(o *Options) { o.UnknownAsPending = enabled }
}

func WithLogger(logger logging.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithPublisher adds an external lifecycle event sink
func WithPublisher(p EventPublisher) Option {
	return func(o *Options) {
		if p != nil {
			o.Publishers = append(o.Publishers, p)
		}
	}
}

func WithMetrics(m MetricsRecorder) Option {
	return func(o *Options) {
		if m != nil {
			o.Metrics = m
		}
	}
}

// WithClock overrides time.Now. Tests only.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

func (o Options) validate() error {
	if o.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", o.Workers)
	}
	if o.Backlog <= 0 {
		return fmt.Errorf("backlog must be positive, got %d", o.Backlog)
	}
	if o.ProcessingDelay < 0 {
		return fmt.Errorf("processing delay must not be negative, got %s", o.ProcessingDelay)
	}
	if o.Retention < 0 {
		return fmt.Errorf("retention must not be negative, got %s", o.Retention)
	}
	if o.Retention > 0 && o.JanitorInterval <= 0 {
		return fmt.Errorf("janitor interval must be positive when retention is set")
	}
	return nil
}
