package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/wal"
)

// replayWAL rebuilds in-memory state from the WAL
func (gs *GraphStorage) replayWAL() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	return gs.wal.Replay(gs.replayEntry)
}

func (gs *GraphStorage) replayEntry(entry *wal.Entry) error {
	switch entry.OpType {
	case wal.OpCreateNode:
		return gs.replayCreateNode(entry)
	case wal.OpCreateEdge:
		return gs.replayCreateEdge(entry)
	default:
		gs.logger.Warn("skipping unknown WAL operation",
			logging.Int("op", int(entry.OpType)), logging.Int64("lsn", int64(entry.LSN)))
		return nil
	}
}

func (gs *GraphStorage) replayCreateNode(entry *wal.Entry) error {
	var rec walNode
	if err := json.Unmarshal(entry.Data, &rec); err != nil {
		return fmt.Errorf("failed to decode node: %w", err)
	}

	if _, exists := gs.nodes[rec.Name]; exists {
		return nil
	}
	gs.applyCreateNode(&Node{Name: rec.Name, CreatedAt: rec.CreatedAt})
	return nil
}

func (gs *GraphStorage) replayCreateEdge(entry *wal.Entry) error {
	var rec walEdge
	if err := json.Unmarshal(entry.Data, &rec); err != nil {
		return fmt.Errorf("failed to decode edge: %w", err)
	}

	if _, ok := gs.nodes[rec.From]; !ok {
		return fmt.Errorf("edge %s->%s: %w", rec.From, rec.To, ErrNodeNotFound)
	}
	if _, ok := gs.nodes[rec.To]; !ok {
		return fmt.Errorf("edge %s->%s: %w", rec.From, rec.To, ErrNodeNotFound)
	}
	gs.applyAddEdge(rec.From, rec.To)
	return nil
}
