package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations
const pgUniqueViolation = "23505"

// CreateNode inserts a node, mapping a unique violation to ErrDuplicateNode
func (s *PGStore) CreateNode(ctx context.Context, name string) (*Node, error) {
	if !validName(name) {
		return nil, NewError("create").Node(name).Cause(ErrInvalidName).Err()
	}

	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`INSERT INTO nodes (name) VALUES ($1) RETURNING created_at`, name,
	).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, DuplicateNodeError(name)
		}
		return nil, NewError("create").Node(name).Cause(err).Err()
	}

	return &Node{Name: name, CreatedAt: createdAt.Unix()}, nil
}

// GetNode retrieves a node by name
func (s *PGStore) GetNode(ctx context.Context, name string) (*Node, error) {
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT created_at FROM nodes WHERE name = $1`, name,
	).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NodeNotFoundError("get", name)
	}
	if err != nil {
		return nil, NewError("get").Node(name).Cause(err).Err()
	}
	return &Node{Name: name, CreatedAt: createdAt.Unix()}, nil
}

// HasNode reports whether a node with the name exists
func (s *PGStore) HasNode(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM nodes WHERE name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, NewError("lookup").Node(name).Cause(err).Err()
	}
	return exists, nil
}

// AddEdge inserts from -> to. An existing edge reports created=false.
func (s *PGStore) AddEdge(ctx context.Context, from, to string) (bool, error) {
	fromID, err := s.nodeID(ctx, "connect", from)
	if err != nil {
		return false, err
	}
	toID, err := s.nodeID(ctx, "connect", to)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO edges (from_id, to_id) VALUES ($1, $2) ON CONFLICT (from_id, to_id) DO NOTHING`,
		fromID, toID)
	if err != nil {
		return false, NewError("connect").Edge(from, to).Cause(err).Err()
	}
	return tag.RowsAffected() == 1, nil
}

// HasEdge reports whether from -> to exists
func (s *PGStore) HasEdge(ctx context.Context, from, to string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM edges e
			JOIN nodes f ON f.id = e.from_id
			JOIN nodes t ON t.id = e.to_id
			WHERE f.name = $1 AND t.name = $2
		)`, from, to).Scan(&exists)
	if err != nil {
		return false, NewError("lookup").Edge(from, to).Cause(err).Err()
	}
	return exists, nil
}

// Neighbors returns outgoing targets ordered by edge creation
func (s *PGStore) Neighbors(ctx context.Context, name string) ([]string, error) {
	fromID, err := s.nodeID(ctx, "neighbors", name)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT t.name FROM edges e
		JOIN nodes t ON t.id = e.to_id
		WHERE e.from_id = $1
		ORDER BY e.seq`, fromID)
	if err != nil {
		return nil, NewError("neighbors").Node(name).Cause(err).Err()
	}

	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, NewError("neighbors").Node(name).Cause(err).Err()
	}
	return out, nil
}

// Stats counts nodes and edges
func (s *PGStore) Stats(ctx context.Context) (Statistics, error) {
	var nodes, edges int64
	err := s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM nodes), (SELECT COUNT(*) FROM edges)`,
	).Scan(&nodes, &edges)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to count graph: %w", err)
	}
	return Statistics{NodeCount: uint64(nodes), EdgeCount: uint64(edges)}, nil
}

func (s *PGStore) nodeID(ctx context.Context, op, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM nodes WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, NodeNotFoundError(op, name)
	}
	if err != nil {
		return 0, NewError(op).Node(name).Cause(err).Err()
	}
	return id, nil
}

var (
	_ GraphStore = (*GraphStorage)(nil)
	_ GraphStore = (*PGStore)(nil)
)
