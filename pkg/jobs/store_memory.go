package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps jobs in a map. Records are copied in and out so callers
// never share memory with the store.
type MemoryStore struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return ErrDuplicateJob
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) Complete(ctx context.Context, id string, outcome Outcome) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}

	updated := job.Clone()
	outcome.apply(updated)
	s.jobs[id] = updated
	return updated.Clone(), nil
}

func (s *MemoryStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			evicted = append(evicted, id)
		}
	}
	return evicted, nil
}

func (s *MemoryStore) ListPending(ctx context.Context) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*Job
	for _, job := range s.jobs {
		if job.Status == StatusPending {
			pending = append(pending, job.Clone())
		}
	}
	return pending, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats StoreStats
	for _, job := range s.jobs {
		stats.count(job.Status)
	}
	return stats, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
