package storage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/wal"
)

// CreateNode creates a node with a unique name
func (gs *GraphStorage) CreateNode(ctx context.Context, name string) (*Node, error) {
	if !validName(name) {
		return nil, NewError("create").Node(name).Cause(ErrInvalidName).Err()
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return nil, ErrStorageClosed
	}
	if _, exists := gs.nodes[name]; exists {
		return nil, DuplicateNodeError(name)
	}

	node := &Node{Name: name, CreatedAt: time.Now().Unix()}

	// Log before applying so a failed append leaves memory untouched
	if err := gs.writeToWAL(wal.OpCreateNode, walNode(*node)); err != nil {
		return nil, err
	}

	gs.applyCreateNode(node)
	return node.Clone(), nil
}

// GetNode retrieves a node by name
func (gs *GraphStorage) GetNode(ctx context.Context, name string) (*Node, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return nil, ErrStorageClosed
	}

	node, exists := gs.nodes[name]
	if !exists {
		return nil, NodeNotFoundError("get", name)
	}
	return node.Clone(), nil
}

// HasNode reports whether a node with the name exists
func (gs *GraphStorage) HasNode(ctx context.Context, name string) (bool, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return false, ErrStorageClosed
	}
	_, exists := gs.nodes[name]
	return exists, nil
}

// applyCreateNode must be called with gs.mu held
func (gs *GraphStorage) applyCreateNode(node *Node) {
	gs.nodes[node.Name] = node
	gs.outgoing[node.Name] = newAdjacency()
	atomic.AddUint64(&gs.stats.NodeCount, 1)
}
