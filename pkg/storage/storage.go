package storage

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"unicode/utf8"

	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/wal"
)

// NewGraphStorage creates a purely in-memory graph store
func NewGraphStorage() *GraphStorage {
	gs, _ := NewGraphStorageWithConfig(StorageConfig{})
	return gs
}

// NewGraphStorageWithConfig creates a graph store and, when DataDir is set,
// opens the WAL and replays it
func NewGraphStorageWithConfig(config StorageConfig) (*GraphStorage, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	gs := &GraphStorage{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string]*adjacency),
		dataDir:  config.DataDir,
		logger:   logger.With(logging.Component("graph_storage")),
	}

	if config.DataDir == "" {
		return gs, nil
	}

	if err := os.MkdirAll(config.DataDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	w, err := wal.Open(config.DataDir, wal.Options{
		Compress: config.CompressWAL,
		NoSync:   !config.SyncWrites,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL: %w", err)
	}
	gs.wal = w

	timer := logging.StartTimer(gs.logger, "wal_replay")
	if err := gs.replayWAL(); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to replay WAL: %w", err)
	}
	timer.End(
		logging.Int64("node_count", int64(gs.stats.NodeCount)),
		logging.Int64("edge_count", int64(gs.stats.EdgeCount)),
	)

	return gs, nil
}

// Stats returns a snapshot of the graph size
func (gs *GraphStorage) Stats(ctx context.Context) (Statistics, error) {
	return Statistics{
		NodeCount: atomic.LoadUint64(&gs.stats.NodeCount),
		EdgeCount: atomic.LoadUint64(&gs.stats.EdgeCount),
	}, nil
}

// Ping reports whether the store is usable
func (gs *GraphStorage) Ping(ctx context.Context) error {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if gs.closed {
		return ErrStorageClosed
	}
	return nil
}

// CurrentLSN returns the last WAL sequence number, or 0 without a WAL
func (gs *GraphStorage) CurrentLSN() uint64 {
	if gs.wal == nil {
		return 0
	}
	return gs.wal.CurrentLSN()
}

// Close releases the WAL. The store rejects all operations afterwards.
func (gs *GraphStorage) Close() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return nil
	}
	gs.closed = true

	if gs.wal != nil {
		if err := gs.wal.Close(); err != nil {
			return WALError("close", err)
		}
	}
	return nil
}

// validName bounds names in characters, matching request validation
func validName(name string) bool {
	return name != "" && utf8.RuneCountInString(name) <= MaxNameLength
}
