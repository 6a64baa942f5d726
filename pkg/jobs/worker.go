package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/algorithms"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
)

// execute runs on a pool worker
func (q *Queue) execute(job *Job) {
	started := q.opts.Clock()
	outcome := q.run(job)
	q.finish(job, outcome)

	q.opts.Metrics.RecordJobFinished(string(outcome.Status),
		started.Sub(job.SubmittedAt), q.opts.Clock().Sub(started))
}

// run produces the outcome; panics and errors become FAILURE
func (q *Queue) run(job *Job) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", logging.JobID(job.ID), logging.Any("panic", r))
			outcome = Outcome{Status: StatusFailure, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if err := q.delay(); err != nil {
		return Outcome{Status: StatusFailure, Error: ErrQueueClosed.Error()}
	}

	path, err := algorithms.ShortestPath(q.ctx, q.graph, job.From, job.To)
	if err != nil {
		if errors.Is(err, context.Canceled) && q.closed.Load() {
			return Outcome{Status: StatusFailure, Error: ErrQueueClosed.Error()}
		}
		return Outcome{Status: StatusFailure, Error: err.Error()}
	}
	return Outcome{Status: StatusSuccess, Path: path}
}

// delay waits out the processing delay unless the queue closes first
func (q *Queue) delay() error {
	if q.opts.ProcessingDelay <= 0 {
		return q.ctx.Err()
	}

	timer := time.NewTimer(q.opts.ProcessingDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-q.ctx.Done():
		return q.ctx.Err()
	}
}

// finish records the terminal state and announces it
func (q *Queue) finish(job *Job, outcome Outcome) {
	outcome.CompletedAt = q.opts.Clock()

	// Must be recorded even while shutting down
	done, err := q.store.Complete(context.Background(), job.ID, outcome)
	if err != nil {
		if errors.Is(err, ErrAlreadyTerminal) {
			q.logger.Warn("job already completed", logging.JobID(job.ID))
		} else {
			q.logger.Error("failed to record job outcome", logging.JobID(job.ID), logging.Error(err))
		}
		return
	}

	evType := EventCompleted
	if done.Status == StatusFailure {
		evType = EventFailed
	}

	q.logger.Debug("job finished",
		logging.JobID(done.ID),
		logging.JobStatus(string(done.Status)),
		logging.PathLength(len(done.Path)))

	q.publish(newEvent(evType, done, done.CompletedAt))
}
