package jobs

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
)

func (q *Queue) runJanitor() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.opts.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.Sweep(q.ctx); err != nil && q.ctx.Err() == nil {
				q.logger.Warn("job eviction failed", logging.Error(err))
			}
		}
	}
}

// Sweep evicts terminal jobs older than the retention period.
// Pending jobs are never evicted. Returns the number removed.
func (q *Queue) Sweep(ctx context.Context) (int, error) {
	if q.opts.Retention <= 0 {
		return 0, nil
	}

	now := q.opts.Clock()
	// Stores may report a partial eviction alongside an error
	evicted, err := q.store.DeleteTerminalBefore(ctx, now.Add(-q.opts.Retention))

	for _, id := range evicted {
		q.publish(Event{Type: EventEvicted, JobID: id, Status: StatusUnknown, Time: now})
	}
	if len(evicted) > 0 {
		q.opts.Metrics.RecordJobsEvicted(len(evicted))
		q.logger.Debug("evicted expired jobs", logging.Count(len(evicted)))
	}
	return len(evicted), err
}

// requeue hands jobs a durable store still held as PENDING back to the pool
func (q *Queue) requeue(pending []*Job) {
	defer q.wg.Done()

	requeued := 0
	for _, job := range pending {
		j := job
		if err := q.pool.Submit(q.ctx, func() { q.execute(j) }); err != nil {
			break
		}
		requeued++
	}

	q.logger.Info("re-enqueued pending jobs",
		logging.Count(requeued), logging.Int("found", len(pending)))
}
