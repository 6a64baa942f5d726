package health

import (
	"context"
	"time"
)

// Common health check functions

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{
			Name:        name,
			Status:      StatusHealthy,
			LastChecked: time.Now(),
		}
	}
}

// Pinger is anything that can verify its own connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// StoreCheck reports the graph store as unhealthy when Ping fails
func StoreCheck(backend string, store Pinger) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "graph_store",
			Details: map[string]any{"backend": backend},
		}

		if err := store.Ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}

		return check
	}
}

// QueueState is a snapshot of the job queue used by JobQueueCheck.
type QueueState struct {
	Closed   bool
	Queued   int
	Capacity int
	Active   int
	Pending  int
}

// JobQueueCheck reports a closed queue as unhealthy and a nearly full
// backlog as degraded.
func JobQueueCheck(getState func(ctx context.Context) (QueueState, error)) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "job_queue",
			Details: make(map[string]any),
		}

		state, err := getState(ctx)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		check.Details["queued"] = state.Queued
		check.Details["capacity"] = state.Capacity
		check.Details["active"] = state.Active
		check.Details["pending"] = state.Pending

		switch {
		case state.Closed:
			check.Status = StatusUnhealthy
			check.Message = "Job queue is closed"
		case state.Capacity > 0 && state.Queued*10 >= state.Capacity*9:
			check.Status = StatusDegraded
			check.Message = "Job backlog nearly full"
		default:
			check.Status = StatusHealthy
			check.Message = "Accepting jobs"
		}

		return check
	}
}

// EventBusCheck reports an event bus whose Ping fails as degraded.
// Lifecycle events are best effort so the service keeps serving.
func EventBusCheck(bus Pinger) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "event_bus", LastChecked: time.Now()}

		if err := bus.Ping(ctx); err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		var usagePercent float64
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
