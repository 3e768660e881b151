package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/azybler/tripch/pkg/geo"
	"github.com/azybler/tripch/pkg/graph"
)

// DefaultMaxSnapMeters bounds how far a query point may be from its vertex.
const DefaultMaxSnapMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any vertex.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult is a query point matched to a graph vertex.
type SnapResult struct {
	Label    string
	Lat, Lng float64
	Dist     float64 // meters from the query point
}

// Snapper finds the nearest vertex with a coordinate.
type Snapper struct {
	tree    rtree.RTreeG[string]
	maxDist float64
}

// NewSnapper indexes every vertex of g that has a coordinate. A
// non-positive maxDist selects DefaultMaxSnapMeters.
func NewSnapper(g *graph.Graph, maxDist float64) *Snapper {
	if maxDist <= 0 {
		maxDist = DefaultMaxSnapMeters
	}
	s := &Snapper{maxDist: maxDist}
	for _, l := range g.Labels() {
		v := g.Vertex(l)
		if !v.HasCoord {
			continue
		}
		pt := [2]float64{v.Lat, v.Lon}
		s.tree.Insert(pt, pt, l)
	}
	return s
}

// Len is the number of indexed vertices.
func (s *Snapper) Len() int { return s.tree.Len() }

// Snap returns the vertex closest to (lat, lng). Ties go to the lowest label.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return SnapResult{}, ErrPointTooFar
	}

	best := SnapResult{Dist: math.Inf(1)}
	found := false
	lo, hi := geo.Box(lat, lng, s.maxDist)
	s.tree.Search(lo, hi, func(min, _ [2]float64, label string) bool {
		d := geo.EquirectangularDist(lat, lng, min[0], min[1])
		if !found || d < best.Dist || (d == best.Dist && label < best.Label) {
			best = SnapResult{Label: label, Lat: min[0], Lng: min[1], Dist: d}
			found = true
		}
		return true
	})

	if !found || best.Dist > s.maxDist {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}
