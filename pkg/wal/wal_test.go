package wal

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func openTestWAL(t *testing.T, dir string, compress bool) *WAL {
	t.Helper()
	w, err := Open(dir, Options{Compress: compress, NoSync: true})
	if err != nil {
		t.Fatalf("Failed to open WAL: %v", err)
	}
	return w
}

func TestWAL_AppendAndRead(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			w := openTestWAL(t, t.TempDir(), compress)
			defer w.Close()

			lsn1, err := w.Append(OpCreateNode, []byte(`{"name":"N1"}`))
			if err != nil {
				t.Fatalf("Failed to append: %v", err)
			}
			if lsn1 != 1 {
				t.Errorf("Expected LSN 1, got %d", lsn1)
			}

			lsn2, err := w.Append(OpCreateEdge, []byte(`{"from":"N1","to":"N2"}`))
			if err != nil {
				t.Fatalf("Failed to append: %v", err)
			}
			if lsn2 != 2 {
				t.Errorf("Expected LSN 2, got %d", lsn2)
			}

			entries, err := w.ReadAll()
			if err != nil {
				t.Fatalf("Failed to read entries: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("Expected 2 entries, got %d", len(entries))
			}
			if string(entries[0].Data) != `{"name":"N1"}` {
				t.Errorf("Unexpected first payload %q", entries[0].Data)
			}
			if entries[0].OpType != OpCreateNode {
				t.Errorf("Expected OpCreateNode, got %s", entries[0].OpType)
			}
			if entries[1].OpType != OpCreateEdge {
				t.Errorf("Expected OpCreateEdge, got %s", entries[1].OpType)
			}
		})
	}
}

func TestWAL_Replay(t *testing.T) {
	w := openTestWAL(t, t.TempDir(), false)
	defer w.Close()

	w.Append(OpCreateNode, []byte("N1"))
	w.Append(OpCreateNode, []byte("N2"))
	w.Append(OpCreateEdge, []byte("N1->N2"))

	replayed := make([]string, 0)
	err := w.Replay(func(entry *Entry) error {
		replayed = append(replayed, string(entry.Data))
		return nil
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	want := []string{"N1", "N2", "N1->N2"}
	if strings.Join(replayed, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, replayed)
	}
}

func TestWAL_ReopenRecoversLSN(t *testing.T) {
	dir := t.TempDir()

	w := openTestWAL(t, dir, true)
	for i := 0; i < 5; i++ {
		if _, err := w.Append(OpCreateNode, []byte("node")); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	w2 := openTestWAL(t, dir, true)
	defer w2.Close()

	if got := w2.CurrentLSN(); got != 5 {
		t.Errorf("Expected recovered LSN 5, got %d", got)
	}

	lsn, err := w2.Append(OpCreateEdge, []byte("edge"))
	if err != nil {
		t.Fatalf("Failed to append after reopen: %v", err)
	}
	if lsn != 6 {
		t.Errorf("Expected LSN 6, got %d", lsn)
	}
}

func TestWAL_StopsAtTornWrite(t *testing.T) {
	dir := t.TempDir()

	w := openTestWAL(t, dir, false)
	w.Append(OpCreateNode, []byte("N1"))
	w.Append(OpCreateNode, []byte("N2"))
	path := w.Path()
	w.Close()

	// Chop the last frame in half
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read WAL file: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-6], 0644); err != nil {
		t.Fatalf("Failed to truncate WAL file: %v", err)
	}

	w2 := openTestWAL(t, dir, false)
	defer w2.Close()

	entries, err := w2.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 intact entry, got %d", len(entries))
	}
	if string(entries[0].Data) != "N1" {
		t.Errorf("Expected N1, got %q", entries[0].Data)
	}

	// The torn tail is discarded, so a new frame lands right after N1
	lsn, err := w2.Append(OpCreateNode, []byte("N3"))
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if lsn != 2 {
		t.Errorf("Expected LSN 2, got %d", lsn)
	}
	entries, _ = w2.ReadAll()
	if len(entries) != 2 || string(entries[1].Data) != "N3" {
		t.Errorf("Expected [N1 N3] after append, got %d entries", len(entries))
	}
}

func TestWAL_StopsAtChecksumMismatch(t *testing.T) {
	dir := t.TempDir()

	w := openTestWAL(t, dir, false)
	w.Append(OpCreateNode, []byte("alpha"))
	w.Append(OpCreateNode, []byte("bravo"))
	w.Append(OpCreateNode, []byte("charlie"))
	path := w.Path()
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read WAL file: %v", err)
	}
	idx := bytes.Index(data, []byte("bravo"))
	if idx < 0 {
		t.Fatal("payload not found in WAL file")
	}
	data[idx] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write WAL file: %v", err)
	}

	w2 := openTestWAL(t, dir, false)
	defer w2.Close()

	entries, _ := w2.ReadAll()
	if len(entries) != 1 {
		t.Errorf("Expected recovery to stop after 1 entry, got %d", len(entries))
	}
}

func TestWAL_CompressionStats(t *testing.T) {
	w := openTestWAL(t, t.TempDir(), true)
	defer w.Close()

	payload := []byte(strings.Repeat(`{"from":"node-a","to":"node-b"}`, 64))
	for i := 0; i < 10; i++ {
		if _, err := w.Append(OpCreateEdge, payload); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}

	stats := w.Stats()
	if stats.TotalWrites != 10 {
		t.Errorf("Expected 10 writes, got %d", stats.TotalWrites)
	}
	if stats.BytesOnDisk >= stats.BytesLogical {
		t.Errorf("Expected compression to shrink payloads, logical=%d disk=%d",
			stats.BytesLogical, stats.BytesOnDisk)
	}
	if ratio := stats.CompressionRatio(); ratio <= 0 || ratio >= 1 {
		t.Errorf("Unexpected compression ratio %f", ratio)
	}
}

func TestWAL_AppendAfterClose(t *testing.T) {
	w := openTestWAL(t, t.TempDir(), false)
	w.Close()

	if _, err := w.Append(OpCreateNode, []byte("x")); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
}
