package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-pathfinder/pkg/algorithms"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/parallel"
	"github.com/dd0wney/cluso-pathfinder/pkg/pubsub"
)

// Queue accepts shortest-path jobs, runs them on a worker pool and keeps
// their outcomes in a Store until retention evicts them
type Queue struct {
	graph algorithms.AdjacencyReader
	store Store
	opts  Options

	pool   *parallel.WorkerPool
	events *pubsub.PubSub[Event]
	logger logging.Logger

	// ctx is cancelled by Close; delays and searches abort on it
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once
	wg     sync.WaitGroup
}

// QueueStats combines store counts with pool occupancy
type QueueStats struct {
	StoreStats
	Queued  int `json:"queued"`
	Backlog int `json:"backlog"`
	Active  int `json:"active"`
	Workers int `json:"workers"`

	// Waiters counts callers blocked in Wait
	Waiters int `json:"waiters"`
	// DroppedEvents counts notifications lost to slow in-process subscribers
	DroppedEvents uint64 `json:"dropped_events"`
}

// NewQueue starts the worker pool, the retention janitor, and re-enqueues
// any jobs the store still holds as PENDING
func NewQueue(graph algorithms.AdjacencyReader, store Store, options ...Option) (*Queue, error) {
	if graph == nil {
		return nil, errors.New("graph reader is required")
	}
	if store == nil {
		return nil, errors.New("job store is required")
	}

	opts := DefaultOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid queue options: %w", err)
	}

	logger := opts.Logger.With(logging.Component("job_queue"))
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		graph:  graph,
		store:  store,
		opts:   opts,
		events: pubsub.New[Event](0),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	q.pool = parallel.NewWorkerPool(opts.Workers, opts.Backlog, func(r any) {
		logger.Error("job worker panic recovered", logging.Any("panic", r))
	})

	pending, err := store.ListPending(ctx)
	if err != nil {
		cancel()
		q.pool.Close()
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	if len(pending) > 0 {
		q.wg.Add(1)
		go q.requeue(pending)
	}

	if opts.Retention > 0 {
		q.wg.Add(1)
		go q.runJanitor()
	}

	logger.Info("job queue started",
		logging.Int("workers", opts.Workers),
		logging.Int("backlog", opts.Backlog),
		logging.Duration("processing_delay", opts.ProcessingDelay),
		logging.Duration("retention", opts.Retention))

	return q, nil
}

// Submit records a PENDING job and hands it to a worker without waiting for it
func (q *Queue) Submit(ctx context.Context, from, to string) (*Job, error) {
	if q.closed.Load() {
		q.opts.Metrics.RecordJobRejected("closed")
		return nil, ErrQueueClosed
	}

	job := &Job{
		ID:          uuid.NewString(),
		From:        from,
		To:          to,
		Status:      StatusPending,
		SubmittedAt: q.opts.Clock(),
	}

	if err := q.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}
	q.publish(newEvent(EventSubmitted, job, job.SubmittedAt))

	queued := job.Clone()
	if err := q.pool.TrySubmit(func() { q.execute(queued) }); err != nil {
		reason, qerr := "full", ErrQueueFull
		if errors.Is(err, parallel.ErrPoolClosed) {
			reason, qerr = "closed", ErrQueueClosed
		}
		q.opts.Metrics.RecordJobRejected(reason)
		q.finish(job, Outcome{Status: StatusFailure, Error: qerr.Error()})
		return nil, qerr
	}

	q.opts.Metrics.RecordJobSubmitted()
	q.logger.Debug("job submitted",
		logging.JobID(job.ID), logging.FromNode(from), logging.ToNode(to))

	return job, nil
}

// Poll reports the current state of a job
func (q *Queue) Poll(ctx context.Context, id string) (Result, error) {
	job, err := q.store.Get(ctx, id)
	if errors.Is(err, ErrJobNotFound) {
		if q.opts.UnknownAsPending {
			return Result{Status: StatusPending}, nil
		}
		return Result{Status: StatusUnknown}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to load job: %w", err)
	}
	return job.Result(), nil
}

// Wait blocks until the job is terminal, the handle is unknown, or ctx is done
func (q *Queue) Wait(ctx context.Context, id string) (Result, error) {
	sub, err := q.events.Subscribe(ctx, id)
	if err != nil {
		return q.Poll(ctx, id)
	}
	defer sub.Unsubscribe()

	// Subscribed before the first read so a completion in between is not missed
	for {
		job, err := q.store.Get(context.WithoutCancel(ctx), id)
		if errors.Is(err, ErrJobNotFound) {
			return q.Poll(ctx, id)
		}
		if err != nil {
			return Result{}, fmt.Errorf("failed to load job: %w", err)
		}
		if job.Status.Terminal() {
			return job.Result(), nil
		}

		select {
		case <-ctx.Done():
			return job.Result(), ctx.Err()
		case _, ok := <-sub.Channel():
			if ok {
				continue
			}
			if ctx.Err() != nil {
				return job.Result(), ctx.Err()
			}
			// Events shut down: every accepted job is terminal by now
			job, err := q.store.Get(context.WithoutCancel(ctx), id)
			if err != nil {
				return q.Poll(ctx, id)
			}
			if !job.Status.Terminal() {
				return job.Result(), ErrQueueClosed
			}
			return job.Result(), nil
		}
	}
}

// Stats returns job counts and pool occupancy
func (q *Queue) Stats(ctx context.Context) (QueueStats, error) {
	st, err := q.store.Stats(ctx)
	if err != nil {
		return QueueStats{}, err
	}
	return QueueStats{
		StoreStats: st,
		Queued:     q.pool.Queued(),
		Backlog:    q.opts.Backlog,
		Active:     q.pool.Active(),
		Workers:    q.pool.Workers(),

		Waiters:       q.events.Subscribers(),
		DroppedEvents: q.events.Dropped(),
	}, nil
}

// Closed reports whether Close has been called
func (q *Queue) Closed() bool {
	return q.closed.Load()
}

// Close rejects new submissions, aborts delays and running searches, and
// waits for every accepted job to reach a terminal state
func (q *Queue) Close() error {
	q.once.Do(func() {
		q.closed.Store(true)
		q.cancel()
		q.pool.Close()
		q.wg.Wait()
		q.events.Shutdown()
		q.logger.Info("job queue stopped")
	})
	return nil
}

func (q *Queue) publish(ev Event) {
	q.events.Publish(ev.JobID, ev)

	for _, p := range q.opts.Publishers {
		if err := p.PublishJobEvent(context.WithoutCancel(q.ctx), ev); err != nil {
			q.logger.Warn("failed to publish job event",
				logging.JobID(ev.JobID), logging.String("event", string(ev.Type)), logging.Error(err))
		}
	}
}
