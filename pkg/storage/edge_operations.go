package storage

import (
	"context"
	"sync/atomic"

	"github.com/dd0wney/cluso-pathfinder/pkg/wal"
)

// AddEdge creates the directed edge from -> to.
// Returns created=false when the edge already exists.
func (gs *GraphStorage) AddEdge(ctx context.Context, from, to string) (bool, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return false, ErrStorageClosed
	}
	if _, ok := gs.nodes[from]; !ok {
		return false, NodeNotFoundError("connect", from)
	}
	if _, ok := gs.nodes[to]; !ok {
		return false, NodeNotFoundError("connect", to)
	}

	if gs.outgoing[from].has(to) {
		return false, nil
	}

	if err := gs.writeToWAL(wal.OpCreateEdge, walEdge{From: from, To: to}); err != nil {
		return false, err
	}

	gs.applyAddEdge(from, to)
	return true, nil
}

// HasEdge reports whether the directed edge from -> to exists
func (gs *GraphStorage) HasEdge(ctx context.Context, from, to string) (bool, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return false, ErrStorageClosed
	}
	adj, ok := gs.outgoing[from]
	if !ok {
		return false, nil
	}
	return adj.has(to), nil
}

// Neighbors returns the outgoing targets of name in insertion order.
// A missing node yields ErrNodeNotFound.
func (gs *GraphStorage) Neighbors(ctx context.Context, name string) ([]string, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return nil, ErrStorageClosed
	}
	adj, ok := gs.outgoing[name]
	if !ok {
		return nil, NodeNotFoundError("neighbors", name)
	}

	out := make([]string, len(adj.order))
	copy(out, adj.order)
	return out, nil
}

// applyAddEdge must be called with gs.mu held
func (gs *GraphStorage) applyAddEdge(from, to string) bool {
	if !gs.outgoing[from].add(to) {
		return false
	}
	atomic.AddUint64(&gs.stats.EdgeCount, 1)
	return true
}
