package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStorageError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "node not found",
			err:      NodeNotFoundError("get", "N1"),
			contains: []string{"get", "node", `"N1"`, "node not found"},
		},
		{
			name:     "duplicate node",
			err:      DuplicateNodeError("N1"),
			contains: []string{"create", "already exists"},
		},
		{
			name:     "edge",
			err:      NewError("connect").Edge("A", "B").Cause(ErrNodeNotFound).Err(),
			contains: []string{"connect", "edge", "A->B"},
		},
		{
			name:     "context only",
			err:      NewError("replay").WAL().Context("lsn 7").Cause(errors.New("boom")).Err(),
			contains: []string{"replay", "WAL", "lsn 7", "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestStorageError_Matching(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NodeNotFoundError("connect", "X"))

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through fmt.Errorf wrapping")
	}
	if IsDuplicate(wrapped) {
		t.Error("not-found error should not be a duplicate")
	}
	if !IsDuplicate(DuplicateNodeError("X")) {
		t.Error("IsDuplicate should match DuplicateNodeError")
	}
	if !errors.Is(WALError("append", errors.New("disk full")), ErrWALAppendFailed) {
		t.Error("WALError should wrap ErrWALAppendFailed")
	}
	if !IsClosed(fmt.Errorf("x: %w", ErrStorageClosed)) {
		t.Error("IsClosed should match ErrStorageClosed")
	}

	var se *StorageError
	if !errors.As(wrapped, &se) {
		t.Fatal("expected *StorageError in chain")
	}
	if se.Name != "X" || se.Op != "connect" {
		t.Errorf("unexpected fields: %+v", se)
	}
	if (&StorageError{Cause: ErrNodeNotFound}).Is(nil) {
		t.Error("Is(nil) should be false")
	}
}
