package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-pathfinder/pkg/wal"
)

// writeToWAL appends an operation to the WAL. A store without a WAL is a no-op.
func (gs *GraphStorage) writeToWAL(operation wal.OpType, data any) error {
	if gs.wal == nil {
		return nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal WAL data: %w", err)
	}

	if _, err := gs.wal.Append(operation, encoded); err != nil {
		return WALError(operation.String(), err)
	}
	return nil
}
