package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
)

var jobKeyPrefix = []byte("job:")

func jobKey(id string) []byte {
	return append(append([]byte(nil), jobKeyPrefix...), id...)
}

// BadgerConfig configures the badger-backed job store
type BadgerConfig struct {
	// Path is the database directory; required unless InMemory
	Path string

	InMemory   bool
	SyncWrites bool

	// TTL expires terminal records inside badger. Zero keeps them until
	// evicted. Use BadgerTTL so the janitor still sees records first.
	TTL time.Duration

	// GCInterval runs value log GC periodically. Zero disables it.
	GCInterval time.Duration

	Logger logging.Logger
}

// minTTLSlack keeps badger's second-granularity expiry clear of the janitor
const minTTLSlack = time.Minute

// BadgerTTL returns a record TTL that outlives retention plus one janitor
// interval, so expiry only backstops a janitor that has fallen behind.
// Zero retention yields zero.
func BadgerTTL(retention, janitorInterval time.Duration) time.Duration {
	if retention <= 0 {
		return 0
	}
	window := retention + janitorInterval
	ttl := 2 * window
	if ttl < window+minTTLSlack {
		ttl = window + minTTLSlack
	}
	return ttl
}

// deleteBatchSize bounds how many keys a single write batch flush holds
const deleteBatchSize = 1000

// BadgerStore persists jobs as JSON values in badger. Every transition is a
// single read-modify-write transaction.
type BadgerStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger logging.Logger
	stopGC chan struct{}
	gcDone chan struct{}
}

// badgerLogger routes badger's internal logs into our logger
type badgerLogger struct {
	logger logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerStore opens the database
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent job store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("job_store"))

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create job store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{db: db, ttl: cfg.TTL, logger: logger}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval)
	}

	return s, nil
}

func (s *BadgerStore) Create(ctx context.Context, job *Job) error {
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := jobKey(job.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrDuplicateJob
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*Job, error) {
	var job *Job
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		job, err = getJob(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *BadgerStore) Complete(ctx context.Context, id string, outcome Outcome) (*Job, error) {
	var updated *Job
	err := s.db.Update(func(txn *badger.Txn) error {
		job, err := getJob(txn, id)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return ErrAlreadyTerminal
		}

		outcome.apply(job)
		value, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}

		entry := badger.NewEntry(jobKey(id), value)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		updated = job
		return txn.SetEntry(entry)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTerminalBefore collects expired terminal jobs in a read
// transaction, then deletes them through write batches so large backlogs
// never exceed badger's transaction limits. Terminal jobs are immutable,
// so nothing collected can change before it is deleted.
func (s *BadgerStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var expired []string
	err := s.db.View(func(txn *badger.Txn) error {
		return scanJobs(txn, func(job *Job) error {
			if job.Status.Terminal() && job.CompletedAt.Before(cutoff) {
				expired = append(expired, job.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	var evicted []string
	for start := 0; start < len(expired); start += deleteBatchSize {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		end := min(start+deleteBatchSize, len(expired))

		wb := s.db.NewWriteBatch()
		for _, id := range expired[start:end] {
			if err := wb.Delete(jobKey(id)); err != nil {
				wb.Cancel()
				return evicted, fmt.Errorf("delete job %s: %w", id, err)
			}
		}
		if err := wb.Flush(); err != nil {
			return evicted, fmt.Errorf("flush deletes: %w", err)
		}
		evicted = append(evicted, expired[start:end]...)
	}
	return evicted, nil
}

func (s *BadgerStore) ListPending(ctx context.Context) ([]*Job, error) {
	var pending []*Job
	err := s.db.View(func(txn *badger.Txn) error {
		return scanJobs(txn, func(job *Job) error {
			if job.Status == StatusPending {
				pending = append(pending, job)
			}
			return nil
		})
	})
	return pending, err
}

func (s *BadgerStore) Stats(ctx context.Context) (StoreStats, error) {
	var stats StoreStats
	err := s.db.View(func(txn *badger.Txn) error {
		return scanJobs(txn, func(job *Job) error {
			stats.count(job.Status)
			return nil
		})
	})
	return stats, err
}

// Close stops GC and closes the database
func (s *BadgerStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	return s.db.Close()
}

func (s *BadgerStore) runGC(interval time.Duration) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC error", logging.Error(err))
			}
		}
	}
}

func getJob(txn *badger.Txn, id string) (*Job, error) {
	item, err := txn.Get(jobKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	var job Job
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &job)
	}); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// scanJobs decodes every job under the prefix. Keys are collected before fn
// runs so fn may delete them.
func scanJobs(txn *badger.Txn, fn func(*Job) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = jobKeyPrefix

	it := txn.NewIterator(opts)
	var jobs []*Job
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var job Job
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		}); err != nil {
			key := item.KeyCopy(nil)
			it.Close()
			return fmt.Errorf("decode job %s: %w", key, err)
		}
		jobs = append(jobs, &job)
	}
	it.Close()

	for _, job := range jobs {
		if err := fn(job); err != nil {
			return err
		}
	}
	return nil
}
