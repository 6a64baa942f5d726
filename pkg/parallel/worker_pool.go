package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolClosed is returned when submitting to a closed pool
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrPoolFull is returned by TrySubmit when the backlog is full
	ErrPoolFull = errors.New("worker pool backlog is full")
)

// PanicHandler is called with the recovered value when a task panics
type PanicHandler func(recovered any)

// WorkerPool runs tasks on a fixed number of goroutines fed by a bounded backlog
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu
	active    atomic.Int64
	onPanic   PanicHandler
}

// NewWorkerPool starts workers goroutines with room for backlog queued tasks.
// Non-positive values fall back to one worker and a backlog of twice the workers.
func NewWorkerPool(workers, backlog int, onPanic PanicHandler) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if backlog <= 0 {
		backlog = workers * 2
	}
	if onPanic == nil {
		onPanic = func(r any) {}
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), backlog),
		onPanic:   onPanic,
	}

	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		wp.run(task)
	}
}

func (wp *WorkerPool) run(task func()) {
	wp.active.Add(1)
	defer wp.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			wp.onPanic(r)
		}
	}()
	task()
}

// TrySubmit queues task without blocking
func (wp *WorkerPool) TrySubmit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("%w (%d queued)", ErrPoolFull, cap(wp.taskQueue))
	}
}

// Submit queues task, waiting for backlog space until ctx is done
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.taskQueue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Queued returns the number of tasks waiting for a worker
func (wp *WorkerPool) Queued() int {
	return len(wp.taskQueue)
}

// Active returns the number of tasks currently running
func (wp *WorkerPool) Active() int {
	return int(wp.active.Load())
}

// Workers returns the pool size
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Close stops accepting tasks and waits for queued and running tasks to finish
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
