package storage

import (
	"context"
	"sync"

	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/wal"
)

const (
	dirPermissions = 0755

	// MaxNameLength is the longest accepted node name
	MaxNameLength = 255
)

// Node is a uniquely named graph vertex
type Node struct {
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// Clone returns a copy of the node
func (n *Node) Clone() *Node {
	c := *n
	return &c
}

// Statistics tracks graph size
type Statistics struct {
	NodeCount uint64 `json:"node_count"`
	EdgeCount uint64 `json:"edge_count"`
}

// GraphStore is the contract shared by every graph backend.
// Neighbors enumerates targets in edge creation order.
type GraphStore interface {
	CreateNode(ctx context.Context, name string) (*Node, error)
	GetNode(ctx context.Context, name string) (*Node, error)
	HasNode(ctx context.Context, name string) (bool, error)
	AddEdge(ctx context.Context, from, to string) (bool, error)
	HasEdge(ctx context.Context, from, to string) (bool, error)
	Neighbors(ctx context.Context, name string) ([]string, error)
	Stats(ctx context.Context) (Statistics, error)
	Ping(ctx context.Context) error
	Close() error
}

// adjacency keeps outgoing targets in insertion order with O(1) membership
type adjacency struct {
	order []string
	set   map[string]struct{}
}

func newAdjacency() *adjacency {
	return &adjacency{set: make(map[string]struct{})}
}

func (a *adjacency) add(to string) bool {
	if _, ok := a.set[to]; ok {
		return false
	}
	a.set[to] = struct{}{}
	a.order = append(a.order, to)
	return true
}

func (a *adjacency) has(to string) bool {
	_, ok := a.set[to]
	return ok
}

// GraphStorage is the in-memory graph store, optionally made durable by a WAL
type GraphStorage struct {
	nodes    map[string]*Node
	outgoing map[string]*adjacency

	mu     sync.RWMutex
	closed bool

	dataDir string
	wal     *wal.WAL

	stats  Statistics
	logger logging.Logger
}

// StorageConfig holds configuration for GraphStorage
type StorageConfig struct {
	// DataDir enables WAL durability when non-empty
	DataDir string

	// CompressWAL switches the WAL to snappy framing
	CompressWAL bool

	// SyncWrites fsyncs after every WAL append
	SyncWrites bool

	Logger logging.Logger
}

// walNode and walEdge are the WAL payloads
type walNode struct {
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

type walEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}
