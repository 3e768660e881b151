package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/tripch/pkg/graph"
)

func TestUnpackNested(t *testing.T) {
	a, b, c, d := graph.Link{Seconds: 1}, graph.Link{Seconds: 2}, graph.Street{Length: 30, Speed: 10}, graph.Link{Seconds: 4}
	nested := graph.Concat(graph.Concat(a, b), graph.Concat(c, graph.Concat(d, a)))

	got, err := Unpack([]graph.Payload{d, nested, b})
	require.NoError(t, err)
	assert.Equal(t, []graph.Payload{d, a, b, c, d, a, b}, got)
}

func TestUnpackPrimitivesUnchanged(t *testing.T) {
	in := []graph.Payload{graph.Link{Seconds: 1}, graph.Street{Length: 5, Speed: 1}}
	got, err := Unpack(in)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	got, err = Unpack(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnpackDepthLimit(t *testing.T) {
	var p graph.Payload = graph.Link{Seconds: 1}
	for range maxUnpackDepth + 1 {
		p = graph.Shortcut{Parts: []graph.Payload{p}}
	}
	_, err := Unpack([]graph.Payload{p})
	assert.ErrorIs(t, err, ErrUnpackDepth)
}
