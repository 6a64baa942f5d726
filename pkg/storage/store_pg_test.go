package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPGStore(t *testing.T) *PGStore {
	t.Helper()

	url := os.Getenv("PATHFINDER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PATHFINDER_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPGStore(ctx, DefaultPGConfig(url))
	require.NoError(t, err)
	require.NoError(t, store.truncate(ctx))
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPGStore_Nodes(t *testing.T) {
	store := newTestPGStore(t)
	ctx := context.Background()

	node, err := store.CreateNode(ctx, "N1")
	require.NoError(t, err)
	assert.Equal(t, "N1", node.Name)

	_, err = store.CreateNode(ctx, "N1")
	assert.True(t, IsDuplicate(err), "expected duplicate, got %v", err)

	_, err = store.CreateNode(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidName)

	got, err := store.GetNode(ctx, "N1")
	require.NoError(t, err)
	assert.Equal(t, node.CreatedAt, got.CreatedAt)

	_, err = store.GetNode(ctx, "missing")
	assert.True(t, IsNotFound(err))

	ok, err := store.HasNode(ctx, "N1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPGStore_Edges(t *testing.T) {
	store := newTestPGStore(t)
	ctx := context.Background()

	for _, n := range []string{"hub", "z", "a", "m"} {
		_, err := store.CreateNode(ctx, n)
		require.NoError(t, err)
	}

	created, err := store.AddEdge(ctx, "hub", "z")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.AddEdge(ctx, "hub", "z")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = store.AddEdge(ctx, "hub", "a")
	require.NoError(t, err)
	_, err = store.AddEdge(ctx, "hub", "m")
	require.NoError(t, err)

	_, err = store.AddEdge(ctx, "hub", "nowhere")
	assert.True(t, IsNotFound(err))

	ns, err := store.Neighbors(ctx, "hub")
	require.NoError(t, err)
	assert.Equal(t, "z,a,m", strings.Join(ns, ","))

	ok, err := store.HasEdge(ctx, "hub", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasEdge(ctx, "a", "hub")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Statistics{NodeCount: 4, EdgeCount: 3}, stats)
}
