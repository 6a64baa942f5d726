package wal

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/pools"
)

const (
	plainFileName      = "wal.log"
	compressedFileName = "wal_compressed.log"
)

// ErrClosed is returned by operations on a closed WAL
var ErrClosed = errors.New("wal is closed")

// WAL is an append-only write-ahead log for graph mutations
type WAL struct {
	file       *os.File
	writer     *bufio.Writer
	currentLSN uint64
	path       string
	opts       Options
	logger     logging.Logger
	closed     bool
	stats      Stats
	mu         sync.Mutex
}

// Open opens or creates the WAL in dataDir and recovers the last LSN
func Open(dataDir string, opts Options) (*WAL, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	name := plainFileName
	if opts.Compress {
		name = compressedFileName
	}
	path := filepath.Join(dataDir, name)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	w := &WAL{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
		opts:   opts,
		logger: logger.With(logging.Component("wal")),
	}

	entries, err := w.ReadAll()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to recover LSN: %w", err)
	}
	if len(entries) > 0 {
		w.currentLSN = entries[len(entries)-1].LSN
	}

	// Drop any torn tail so new frames are not appended behind garbage
	if err := w.truncateTo(entries); err != nil {
		file.Close()
		return nil, err
	}

	return w, nil
}

// Append writes an entry and flushes it to disk before returning its LSN
func (w *WAL) Append(opType OpType, data []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if w.currentLSN == ^uint64(0) {
		return 0, fmt.Errorf("WAL LSN space exhausted")
	}

	stored := data
	if w.opts.Compress {
		buf := pools.Get(snappy.MaxEncodedLen(len(data)))
		stored = snappy.Encode(buf[:cap(buf)], data)
		// writeEntry copies into the bufio writer, so buf is free on return
		defer pools.Put(buf)
	}

	entry := Entry{
		LSN:       w.currentLSN + 1,
		OpType:    opType,
		Checksum:  crc32.ChecksumIEEE(stored),
		Timestamp: time.Now().Unix(),
	}

	if err := writeEntry(w.writer, &entry, stored); err != nil {
		return 0, fmt.Errorf("failed to write WAL entry: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush WAL: %w", err)
	}
	if !w.opts.NoSync {
		if err := w.file.Sync(); err != nil {
			return 0, fmt.Errorf("failed to sync WAL: %w", err)
		}
	}

	w.currentLSN = entry.LSN
	w.stats.TotalWrites++
	w.stats.BytesLogical += uint64(len(data))
	w.stats.BytesOnDisk += uint64(len(stored))

	return entry.LSN, nil
}

// ReadAll returns every intact entry in order.
// Reading stops at the first torn or corrupt frame; everything before it is kept.
func (w *WAL) ReadAll() ([]*Entry, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	reader := bufio.NewReader(w.file)
	entries := make([]*Entry, 0)

	for {
		entry, err := readEntry(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			w.logger.Warn("WAL corruption detected, stopping recovery",
				logging.Count(len(entries)), logging.Error(err))
			break
		}

		if crc32.ChecksumIEEE(entry.Data) != entry.Checksum {
			w.logger.Warn("WAL checksum mismatch, stopping recovery",
				logging.Int64("lsn", int64(entry.LSN)), logging.Count(len(entries)))
			break
		}

		entry.storedLen = int64(len(entry.Data))
		if w.opts.Compress {
			decoded, err := snappy.Decode(nil, entry.Data)
			if err != nil {
				w.logger.Warn("WAL entry failed to decompress, stopping recovery",
					logging.Int64("lsn", int64(entry.LSN)), logging.Error(err))
				break
			}
			entry.Data = decoded
		}

		entries = append(entries, entry)
	}

	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}

	return entries, nil
}

func (w *WAL) truncateTo(entries []*Entry) error {
	var valid int64
	for _, entry := range entries {
		valid += frameOverhead + entry.storedLen
	}

	info, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat WAL file: %w", err)
	}
	if info.Size() == valid {
		return nil
	}

	w.logger.Warn("truncating WAL tail",
		logging.Int64("valid_bytes", valid), logging.Int64("file_bytes", info.Size()))
	if err := w.file.Truncate(valid); err != nil {
		return fmt.Errorf("failed to truncate WAL: %w", err)
	}
	return nil
}

// Replay calls handler for every intact entry in LSN order
func (w *WAL) Replay(handler func(*Entry) error) error {
	w.mu.Lock()
	entries, err := w.ReadAll()
	w.mu.Unlock()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := handler(entry); err != nil {
			return fmt.Errorf("failed to replay entry LSN=%d: %w", entry.LSN, err)
		}
	}

	return nil
}

// CurrentLSN returns the LSN of the last appended entry
func (w *WAL) CurrentLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentLSN
}

// Stats returns write statistics for this WAL session
func (w *WAL) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Path returns the log file location
func (w *WAL) Path() string {
	return w.path
}

// Close flushes and closes the WAL
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
