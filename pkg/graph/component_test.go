package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)
	assert.True(t, uf.Union(0, 1))
	assert.True(t, uf.Union(1, 2))
	assert.False(t, uf.Union(0, 2))
	assert.Equal(t, uf.Find(0), uf.Find(2))
	assert.NotEqual(t, uf.Find(0), uf.Find(3))
	assert.Equal(t, uint32(3), uf.Size(2))
	assert.Equal(t, uint32(1), uf.Size(4))
}

func TestLargestComponent(t *testing.T) {
	// Component {A,B,C} (directed chain) and {X,Y}.
	g := newLinkGraph(t,
		"A", "B", 1,
		"C", "B", 1,
		"X", "Y", 1,
		"Y", "X", 1,
	)
	assert.Equal(t, []string{"A", "B", "C"}, LargestComponent(g))
	assert.Nil(t, LargestComponent(New()))
}

func TestLargestComponentTie(t *testing.T) {
	g := newLinkGraph(t, "X", "Y", 1, "A", "B", 1)
	assert.Equal(t, []string{"A", "B"}, LargestComponent(g))
}

func TestFilterToComponent(t *testing.T) {
	g := newLinkGraph(t,
		"A", "B", 1,
		"B", "C", 2,
		"X", "Y", 1,
	)
	require.NoError(t, g.SetCoord("A", 1, 2))

	f := FilterToComponent(g, LargestComponent(g))
	assert.Equal(t, []string{"A", "B", "C"}, f.Labels())
	assert.Equal(t, 2, f.NumEdges())
	assert.True(t, f.Vertex("A").HasCoord)
	assert.Equal(t, 5, g.NumVertices(), "source graph untouched")
}
