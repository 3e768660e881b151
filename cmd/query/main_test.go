package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/tripch/pkg/ch"
	"github.com/azybler/tripch/pkg/graph"
	"github.com/azybler/tripch/pkg/routing"
)

// savedLine writes the hierarchy of a three-vertex street A-B-C, 111 m per
// block at 11.1 m/s, and returns its directory.
func savedLine(t *testing.T) string {
	t.Helper()
	g := graph.New()
	for i, l := range []string{"A", "B", "C"} {
		g.AddVertex(l)
		require.NoError(t, g.SetCoord(l, 1.3, 103.8+float64(i)*0.001))
	}
	for _, pair := range [][2]string{{"A", "B"}, {"B", "A"}, {"B", "C"}, {"C", "B"}} {
		_, err := g.AddEdge(pair[0], pair[1], graph.Street{Length: 111, Speed: 11.1})
		require.NoError(t, err)
	}

	b, err := ch.NewBuilder(g, ch.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	require.NoError(t, b.Run(context.Background()))
	dir := t.TempDir()
	require.NoError(t, b.Hierarchy().Save(dir))
	return dir
}

func runJSON(t *testing.T, opt options) output {
	t.Helper()
	opt.asJSON = true
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), opt, &buf))
	var out output
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestQueryByLabel(t *testing.T) {
	out := runJSON(t, options{dir: savedLine(t), from: "A", to: "C", depart: "2026-01-02T08:00:00Z", unpack: true})
	assert.Equal(t, "A", out.Source)
	assert.Equal(t, "C", out.Target)
	assert.Equal(t, int64(1767340800), out.Depart)
	assert.InDelta(t, 20.0, out.Seconds, 1e-9)
	assert.Equal(t, 2, out.Legs)
	assert.InDelta(t, 222.0, out.Meters, 1e-9)
}

func TestQueryByCoordinateUsesDeparture(t *testing.T) {
	out := runJSON(t, options{
		dir:        savedLine(t),
		fromLatLng: []float64{1.3, 103.8},
		toLatLng:   []float64{1.3, 103.802},
		depart:     "2026-01-02T08:00:00Z",
	})
	assert.Equal(t, "A", out.Source)
	assert.Equal(t, "C", out.Target)
	assert.Equal(t, int64(1767340800), out.Depart)
	assert.Equal(t, 2, out.Legs)
}

func TestQueryErrors(t *testing.T) {
	dir := savedLine(t)
	err := run(context.Background(), options{dir: dir, from: "A", to: "Z"}, io.Discard)
	assert.ErrorIs(t, err, routing.ErrUnknownVertex)

	err = run(context.Background(), options{dir: dir, from: "A", to: "C", depart: "tomorrow"}, io.Discard)
	assert.ErrorContains(t, err, "--depart")

	err = run(context.Background(), options{dir: dir, fromLatLng: []float64{1.3}, toLatLng: []float64{1.3, 103.8}}, io.Discard)
	assert.ErrorContains(t, err, "--from-latlng")
}
