package graph

import (
	"github.com/paulmach/osm"

	osmparser "github.com/azybler/tripch/pkg/osm"
)

// Build creates a street graph from parsed OSM edges. Every vertex carries
// the coordinate of its OSM node; edges carry Street payloads.
func Build(result *osmparser.ParseResult) *Graph {
	g := New()

	addNode := func(id osm.NodeID) string {
		label := osmparser.NodeLabel(id)
		if g.HasVertex(label) {
			return label
		}
		v := g.AddVertex(label)
		if lat, ok := result.NodeLat[id]; ok {
			v.Lat, v.Lon, v.HasCoord = lat, result.NodeLon[id], true
		}
		return label
	}

	for _, e := range result.Edges {
		from := addNode(e.FromNodeID)
		to := addNode(e.ToNodeID)
		// Both endpoints were just added, so AddEdge cannot fail.
		_, _ = g.AddEdge(from, to, Street{Length: e.Length, Speed: e.Speed})
	}

	return g
}
