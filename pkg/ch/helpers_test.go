package ch

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/azybler/tripch/pkg/graph"
)

// linkGraph builds a graph from "from to seconds" triples.
func linkGraph(t *testing.T, edges ...any) *graph.Graph {
	t.Helper()
	require.Zero(t, len(edges)%3)
	g := graph.New()
	for i := 0; i < len(edges); i += 3 {
		from, to := edges[i].(string), edges[i+1].(string)
		g.AddVertex(from)
		g.AddVertex(to)
		_, err := g.AddEdge(from, to, graph.Link{Seconds: float64(edges[i+2].(int))})
		require.NoError(t, err)
	}
	return g
}

// gridGraph builds an n x n grid of two-way streets with uneven costs, plus
// a few one-way diagonals so that the graph is not symmetric.
func gridGraph(t *testing.T, n int) *graph.Graph {
	t.Helper()
	g := graph.New()
	label := func(r, c int) string { return fmt.Sprintf("r%dc%d", r, c) }
	for r := range n {
		for c := range n {
			g.AddVertex(label(r, c))
			require.NoError(t, g.SetCoord(label(r, c), 1.3+float64(r)*0.001, 103.8+float64(c)*0.001))
		}
	}
	add := func(a, b string, cost float64) {
		_, err := g.AddEdge(a, b, graph.Link{Seconds: cost})
		require.NoError(t, err)
	}
	for r := range n {
		for c := range n {
			if c+1 < n {
				cost := float64(1 + (r*7+c*3)%5)
				add(label(r, c), label(r, c+1), cost)
				add(label(r, c+1), label(r, c), cost+1)
			}
			if r+1 < n {
				cost := float64(1 + (r*3+c*5)%4)
				add(label(r, c), label(r+1, c), cost)
				add(label(r+1, c), label(r, c), cost)
			}
			if r+1 < n && c+1 < n && (r+c)%3 == 0 {
				add(label(r, c), label(r+1, c+1), 2)
			}
		}
	}
	return g
}

// hierarchyDist is the cost of the cheapest up-then-down path.
func hierarchyDist(t *testing.T, h *Hierarchy, s, d string) float64 {
	t.Helper()
	fwd, err := h.Up.ShortestPathTree(s, "", graph.State{}, graph.Limits{})
	require.NoError(t, err)
	bwd, err := h.Down.ShortestPathTreeBack(d, "", graph.State{Time: graph.MaxTime}, graph.Limits{})
	require.NoError(t, err)
	best := math.Inf(1)
	for _, l := range fwd.Labels() {
		best = min(best, fwd.Dist(l)+bwd.Dist(l))
	}
	return best
}

// baseDist is the cost of the cheapest path in the unrestricted graph.
func baseDist(t *testing.T, g *graph.Graph, s, d string) float64 {
	t.Helper()
	tree, err := g.ShortestPathTree(s, d, graph.State{}, graph.Limits{})
	require.NoError(t, err)
	return tree.Dist(d)
}

func requireDistancesPreserved(t *testing.T, base *graph.Graph, h *Hierarchy) {
	t.Helper()
	labels := base.Labels()
	for _, s := range labels {
		for _, d := range labels {
			want := baseDist(t, base, s, d)
			got := hierarchyDist(t, h, s, d)
			if math.IsInf(want, 1) {
				require.True(t, math.IsInf(got, 1), "%s->%s: expected no path, got %v", s, d, got)
				continue
			}
			require.InDelta(t, want, got, 1e-9, "%s->%s", s, d)
		}
	}
}

type edgeKey struct {
	From, To string
	Cost     float64
}

func edgeSet(g *graph.Graph) []edgeKey {
	var out []edgeKey
	for _, e := range g.Edges() {
		out = append(out, edgeKey{e.From, e.To, e.Payload.Cost()})
	}
	return out
}
