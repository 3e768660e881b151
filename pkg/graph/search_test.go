package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamond:
//
//	A --1--> B --1--> D
//	A --5--> C --1--> D
//	D --1--> E
func diamond(t *testing.T) *Graph {
	return newLinkGraph(t,
		"A", "B", 1,
		"B", "D", 1,
		"A", "C", 5,
		"C", "D", 1,
		"D", "E", 1,
	)
}

func TestShortestPathTreeUnbounded(t *testing.T) {
	g := diamond(t)
	tree, err := g.ShortestPathTree("A", "", State{}, Limits{})
	require.NoError(t, err)

	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, 0.0, tree.Dist("A"))
	assert.Equal(t, 2.0, tree.Dist("D"))
	assert.Equal(t, 3.0, tree.Dist("E"))
	assert.Equal(t, 5.0, tree.Dist("C"))

	path := tree.PathTo("E")
	require.Len(t, path, 3)
	assert.Equal(t, "A", path[0].From)
	assert.Equal(t, "B", path[1].From)
	assert.Equal(t, "D", path[2].From)
	assert.Empty(t, tree.PathTo("A"))
}

func TestShortestPathTreeStopsAtTarget(t *testing.T) {
	g := diamond(t)
	tree, err := g.ShortestPathTree("A", "B", State{}, Limits{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, tree.Dist("B"))
	_, reachedE := tree.Node("E")
	assert.False(t, reachedE)
}

func TestShortestPathTreeHopLimit(t *testing.T) {
	g := diamond(t)
	tree, err := g.ShortestPathTree("A", "", State{}, Limits{MaxHops: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, tree.Labels())
}

func TestShortestPathTreeWeightLimit(t *testing.T) {
	g := diamond(t)
	tree, err := g.ShortestPathTree("A", "", State{Weight: 100}, Limits{MaxWeight: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D"}, tree.Labels())
	assert.Equal(t, 2.0, tree.Dist("D"), "distance is relative to the initial state")
	assert.True(t, math.IsInf(tree.Dist("E"), 1))
}

func TestShortestPathTreeSkipsDisabled(t *testing.T) {
	g := diamond(t)
	require.NoError(t, g.SetEnabled("B", false))

	tree, err := g.ShortestPathTree("A", "", State{}, Limits{})
	require.NoError(t, err)
	assert.Equal(t, 6.0, tree.Dist("D"))
	_, reachedB := tree.Node("B")
	assert.False(t, reachedB)

	require.NoError(t, g.SetEnabled("B", true))
	tree, err = g.ShortestPathTree("A", "", State{}, Limits{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, tree.Dist("D"))
}

func TestShortestPathTreeBack(t *testing.T) {
	g := diamond(t)
	tree, err := g.ShortestPathTreeBack("E", "", State{Time: MaxTime}, Limits{})
	require.NoError(t, err)

	assert.Equal(t, 3.0, tree.Dist("A"))
	assert.Equal(t, 2.0, tree.Dist("C"))
	assert.Equal(t, MaxTime-3, tree.nodes["A"].State.Time)

	path := tree.PathTo("A")
	require.Len(t, path, 3)
	assert.Equal(t, "A", path[0].From)
	assert.Equal(t, "B", path[0].To)
	assert.Equal(t, "E", path[2].To)
}

func TestShortestPathTreeUnknownRoot(t *testing.T) {
	_, err := diamond(t).ShortestPathTree("Z", "", State{}, Limits{})
	assert.ErrorIs(t, err, ErrVertexNotFound)
}

func TestShortestPathTreeMaxSettled(t *testing.T) {
	g := diamond(t)
	tree, err := g.ShortestPathTree("A", "", State{}, Limits{MaxSettled: 1})
	require.NoError(t, err)
	// Only the root is settled, so nothing beyond it is expanded.
	assert.Equal(t, 1, tree.Len())
}

func TestSearchHeapOrder(t *testing.T) {
	var h searchHeap
	for _, w := range []float64{5, 1, 4, 2, 3} {
		h.Push(searchItem{state: State{Weight: w}})
	}
	var got []float64
	for h.Len() > 0 {
		got = append(got, h.Pop().state.Weight)
	}
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got)
}
