package jobs

import (
	"context"
	"time"
)

// Store persists job records. Implementations make each transition atomic:
// readers see either the PENDING record or the full terminal record.
type Store interface {
	// Create persists a new PENDING job; ErrDuplicateJob if the ID exists
	Create(ctx context.Context, job *Job) error

	// Get returns a copy of the job or ErrJobNotFound
	Get(ctx context.Context, id string) (*Job, error)

	// Complete records the terminal outcome once; ErrAlreadyTerminal afterwards
	Complete(ctx context.Context, id string, outcome Outcome) (*Job, error)

	// DeleteTerminalBefore evicts terminal jobs completed before cutoff and
	// returns their IDs. On error the IDs already removed are still returned.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// ListPending returns every job still PENDING
	ListPending(ctx context.Context) ([]*Job, error)

	Stats(ctx context.Context) (StoreStats, error)
	Close() error
}

// StoreStats counts jobs by status
type StoreStats struct {
	Pending   int `json:"pending"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func (s *StoreStats) count(status Status) {
	switch status {
	case StatusPending:
		s.Pending++
	case StatusSuccess:
		s.Succeeded++
	case StatusFailure:
		s.Failed++
	}
}
