package wal

import "github.com/dd0wney/cluso-pathfinder/pkg/logging"

// OpType identifies the graph mutation recorded by an entry
type OpType uint8

const (
	OpCreateNode OpType = iota + 1
	OpCreateEdge
)

func (o OpType) String() string {
	switch o {
	case OpCreateNode:
		return "create_node"
	case OpCreateEdge:
		return "create_edge"
	default:
		return "unknown"
	}
}

// Entry is a single WAL record. Data is always the uncompressed payload.
type Entry struct {
	LSN       uint64
	OpType    OpType
	Data      []byte
	Checksum  uint32
	Timestamp int64

	storedLen int64
}

// Options configures a WAL
type Options struct {
	// Compress snappy-encodes payloads. Compressed and plain logs use
	// different file names and are not interchangeable.
	Compress bool

	// NoSync skips fsync after each append. Tests only.
	NoSync bool

	Logger logging.Logger
}

// Stats reports write volume since the WAL was opened
type Stats struct {
	TotalWrites  uint64
	BytesLogical uint64
	BytesOnDisk  uint64
}

// CompressionRatio is BytesOnDisk / BytesLogical, or 1 when nothing was written
func (s Stats) CompressionRatio() float64 {
	if s.BytesLogical == 0 {
		return 1
	}
	return float64(s.BytesOnDisk) / float64(s.BytesLogical)
}
