package jobs

import (
	"context"
	"time"
)

// EventType names a job lifecycle transition
type EventType string

const (
	EventSubmitted EventType = "submitted"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventEvicted   EventType = "evicted"
)

// Event describes one lifecycle transition
type Event struct {
	Type       EventType `json:"type"`
	JobID      string    `json:"job_id"`
	Status     Status    `json:"status"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	PathLength int       `json:"path_length,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// EventPublisher receives lifecycle events. Publishing must not block for long.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event Event) error
}

func newEvent(typ EventType, job *Job, at time.Time) Event {
	return Event{
		Type:       typ,
		JobID:      job.ID,
		Status:     job.Status,
		From:       job.From,
		To:         job.To,
		PathLength: len(job.Path),
		Error:      job.Error,
		Time:       at,
	}
}
