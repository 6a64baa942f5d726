package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestGraphInvariants checks store invariants over random edge sequences
func TestGraphInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	edgeGen := gen.SliceOf(gen.IntRange(0, 63))

	// Pairs are decoded from ints: high 3 bits source, low 3 bits target, over 8 nodes
	buildGraph := func(pairs []int) (*GraphStorage, [][2]string) {
		gs := NewGraphStorage()
		for i := 0; i < 8; i++ {
			gs.CreateNode(ctx, fmt.Sprintf("n%d", i))
		}
		edges := make([][2]string, 0, len(pairs))
		for _, p := range pairs {
			from := fmt.Sprintf("n%d", p>>3)
			to := fmt.Sprintf("n%d", p&7)
			gs.AddEdge(ctx, from, to)
			edges = append(edges, [2]string{from, to})
		}
		return gs, edges
	}

	properties.Property("edge count equals distinct pairs", prop.ForAll(
		func(pairs []int) bool {
			gs, _ := buildGraph(pairs)
			defer gs.Close()

			distinct := make(map[int]struct{})
			for _, p := range pairs {
				distinct[p] = struct{}{}
			}
			stats, _ := gs.Stats(ctx)
			return stats.EdgeCount == uint64(len(distinct))
		},
		edgeGen,
	))

	properties.Property("every added edge is visible and neighbors are unique", prop.ForAll(
		func(pairs []int) bool {
			gs, edges := buildGraph(pairs)
			defer gs.Close()

			for _, e := range edges {
				if ok, _ := gs.HasEdge(ctx, e[0], e[1]); !ok {
					return false
				}
			}
			for i := 0; i < 8; i++ {
				ns, err := gs.Neighbors(ctx, fmt.Sprintf("n%d", i))
				if err != nil {
					return false
				}
				seen := make(map[string]bool)
				for _, n := range ns {
					if seen[n] {
						return false
					}
					seen[n] = true
				}
			}
			return true
		},
		edgeGen,
	))

	properties.Property("neighbors follow first-insertion order", prop.ForAll(
		func(pairs []int) bool {
			gs, edges := buildGraph(pairs)
			defer gs.Close()

			expected := make(map[string][]string)
			seen := make(map[[2]string]bool)
			for _, e := range edges {
				if seen[e] {
					continue
				}
				seen[e] = true
				expected[e[0]] = append(expected[e[0]], e[1])
			}
			for from, want := range expected {
				got, _ := gs.Neighbors(ctx, from)
				if fmt.Sprint(got) != fmt.Sprint(want) {
					return false
				}
			}
			return true
		},
		edgeGen,
	))

	properties.TestingRun(t)
}
