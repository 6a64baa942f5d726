package algorithms

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-pathfinder/pkg/storage"
)

// AdjacencyReader is the read capability path finding needs from a graph store
type AdjacencyReader interface {
	HasNode(ctx context.Context, name string) (bool, error)
	Neighbors(ctx context.Context, name string) ([]string, error)
}

// Stats describes the work done by one search
type Stats struct {
	NodesExpanded int
	EdgesScanned  int
}

type frontierItem struct {
	name string
	path []string
}

// ShortestPath finds a minimum-edge path from -> to using breadth-first search.
// Returns nil with no error when either node is missing or to is unreachable.
func ShortestPath(ctx context.Context, graph AdjacencyReader, from, to string) ([]string, error) {
	path, _, err := ShortestPathWithStats(ctx, graph, from, to)
	return path, err
}

// ShortestPathWithStats is ShortestPath that also reports search effort
func ShortestPathWithStats(ctx context.Context, graph AdjacencyReader, from, to string) ([]string, Stats, error) {
	var stats Stats

	for _, name := range []string{from, to} {
		ok, err := graph.HasNode(ctx, name)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to resolve node %q: %w", name, err)
		}
		if !ok {
			return nil, stats, nil
		}
	}

	if from == to {
		return []string{from}, stats, nil
	}

	visited := make(map[string]bool)
	queue := []frontierItem{{name: from, path: []string{from}}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		current := queue[0]
		queue = queue[1:]

		if visited[current.name] {
			continue
		}
		visited[current.name] = true
		stats.NodesExpanded++

		if current.name == to {
			return current.path, stats, nil
		}

		neighbors, err := graph.Neighbors(ctx, current.name)
		if err != nil {
			if errors.Is(err, storage.ErrNodeNotFound) {
				continue
			}
			return nil, stats, fmt.Errorf("failed to read neighbors of %q: %w", current.name, err)
		}

		for _, next := range neighbors {
			stats.EdgesScanned++
			if visited[next] {
				continue
			}
			// Full slice expression forces a copy so sibling paths never share a backing array
			path := append(current.path[:len(current.path):len(current.path)], next)
			queue = append(queue, frontierItem{name: next, path: path})
		}
	}

	return nil, stats, nil // No path found
}
