package storage

import (
	"context"
	"fmt"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS nodes (
    id         BIGSERIAL PRIMARY KEY,
    name       VARCHAR(255) NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS edges (
    seq     BIGSERIAL PRIMARY KEY,
    from_id BIGINT NOT NULL REFERENCES nodes(id),
    to_id   BIGINT NOT NULL REFERENCES nodes(id),
    UNIQUE (from_id, to_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_from_seq ON edges(from_id, seq);
`

// migrate creates tables if they don't exist
func (s *PGStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// truncate empties both tables. Tests only.
func (s *PGStore) truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE edges, nodes RESTART IDENTITY`)
	return err
}
