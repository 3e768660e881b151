package routing

import (
	"errors"
	"fmt"
	"math"

	"github.com/azybler/tripch/pkg/graph"
)

var (
	// ErrNoPath is returned when the forward and backward searches share no vertex.
	ErrNoPath = errors.New("no path")
	// ErrUnknownVertex is returned for a label the hierarchy does not contain.
	ErrUnknownVertex = errors.New("unknown vertex")
)

// Path is the result of a hierarchy query.
type Path struct {
	Source, Target string
	Depart         int64   // departure time the query was run with
	Meeting        string  // highest vertex on the path, where both searches met
	Weight         float64 // total cost from source to target
	// Edges are hierarchy edges in travel order; some may be shortcuts.
	Edges    []*graph.Edge
	Payloads []graph.Payload
}

// Query finds the cheapest path from source to target using only upward
// edges from the source side and downward edges into the target side. The
// backward search is seeded with the latest possible time so that no edge is
// pruned for lack of time budget.
//
// Among meeting vertices with equal total weight the lowest label wins.
func Query(up, down *graph.Graph, source, target string, init graph.State, lim graph.Limits) (*Path, error) {
	if !up.HasVertex(source) {
		return nil, fmt.Errorf("source %q: %w", source, ErrUnknownVertex)
	}
	if !down.HasVertex(target) {
		return nil, fmt.Errorf("target %q: %w", target, ErrUnknownVertex)
	}

	fwd, err := up.ShortestPathTree(source, "", init, lim)
	if err != nil {
		return nil, fmt.Errorf("forward search: %w", err)
	}
	bwd, err := down.ShortestPathTreeBack(target, "", graph.State{Time: graph.MaxTime}, lim)
	if err != nil {
		return nil, fmt.Errorf("backward search: %w", err)
	}

	var meeting string
	best := math.Inf(1)
	for _, l := range fwd.Labels() {
		if w := fwd.Dist(l) + bwd.Dist(l); w < best {
			meeting, best = l, w
		}
	}
	if math.IsInf(best, 1) {
		return nil, fmt.Errorf("%s to %s: %w", source, target, ErrNoPath)
	}

	edges := append(fwd.PathTo(meeting), bwd.PathTo(meeting)...)
	payloads := make([]graph.Payload, len(edges))
	for i, e := range edges {
		payloads[i] = e.Payload
	}
	return &Path{
		Source:   source,
		Target:   target,
		Depart:   init.Time,
		Meeting:  meeting,
		Weight:   best,
		Edges:    edges,
		Payloads: payloads,
	}, nil
}

// Vertices returns the hierarchy vertices along the path, source first.
func (p *Path) Vertices() []string {
	out := []string{p.Source}
	for _, e := range p.Edges {
		out = append(out, e.To)
	}
	return out
}
