package jobs

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"

	// StatusUnknown is only reported by Poll for handles the queue does not hold
	StatusUnknown Status = "UNKNOWN"
)

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

var (
	ErrQueueClosed     = errors.New("job queue is closed")
	ErrQueueFull       = errors.New("job queue is full")
	ErrJobNotFound     = errors.New("job not found")
	ErrDuplicateJob    = errors.New("job already exists")
	ErrAlreadyTerminal = errors.New("job already completed")
)

// Job is one asynchronous shortest-path request
type Job struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Status      Status    `json:"status"`
	Path        []string  `json:"path,omitempty"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// Clone returns a deep copy
func (j *Job) Clone() *Job {
	c := *j
	if j.Path != nil {
		c.Path = append([]string(nil), j.Path...)
	}
	return &c
}

// Result is what a poller sees
func (j *Job) Result() Result {
	r := Result{Status: j.Status}
	switch j.Status {
	case StatusSuccess:
		if j.Path != nil {
			r.Path = append([]string(nil), j.Path...)
		}
	case StatusFailure:
		r.Error = j.Error
	}
	return r
}

// Outcome is the terminal transition a worker records
type Outcome struct {
	Status      Status
	Path        []string
	Error       string
	CompletedAt time.Time
}

func (o Outcome) apply(j *Job) {
	j.Status = o.Status
	j.Path = nil
	if o.Status == StatusSuccess && o.Path != nil {
		j.Path = append([]string(nil), o.Path...)
	}
	j.Error = o.Error
	j.CompletedAt = o.CompletedAt
}

// Result of polling a job. Path is nil both for "no path" and for non-success states.
type Result struct {
	Status Status
	Path   []string
	Error  string
}
