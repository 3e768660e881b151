package ch

import (
	"errors"
	"fmt"

	"github.com/azybler/tripch/pkg/graph"
)

// Default witness-probe bounds.
const (
	DefaultHopLimit   = 5   // max hops from the in-neighbor
	DefaultMaxSettled = 500 // max vertices settled per probe
)

// ErrInvariant marks a malformed working graph. A builder that reports it
// is unusable.
var ErrInvariant = errors.New("contraction invariant violated")

// Shortcut is an edge that must be added between two neighbors of a
// contracted vertex to keep their distance.
type Shortcut struct {
	From, To string
	Payload  graph.Payload // the in-edge payload followed by the out-edge payload
	Cost     float64
}

// ShortcutsNeeded returns the shortcuts required if label were removed from
// g, ordered by (From, To). For each in-neighbor u a single bounded search is
// run with label disabled; a pair (u, v) needs a shortcut when the path
// through label is strictly cheaper than anything the search found. A probe
// that runs out of budget counts as "no witness", which can only add
// shortcuts.
//
// The graph is left as it was found, including label's enabled flag.
func ShortcutsNeeded(g *graph.Graph, label string, lim graph.Limits) ([]Shortcut, error) {
	w := g.Vertex(label)
	if w == nil {
		return nil, fmt.Errorf("shortcuts for %q: %w", label, graph.ErrVertexNotFound)
	}
	if w.InDegree() == 0 || w.OutDegree() == 0 {
		return nil, nil
	}

	// One-hop trees give the cheapest parallel edge on each side.
	in, err := g.ShortestPathTreeBack(label, "", graph.State{}, graph.Limits{MaxHops: 1})
	if err != nil {
		return nil, err
	}
	out, err := g.ShortestPathTree(label, "", graph.State{}, graph.Limits{MaxHops: 1})
	if err != nil {
		return nil, err
	}

	var targets []string
	var maxOut float64
	for _, v := range out.Labels() {
		if v == label {
			continue
		}
		targets = append(targets, v)
		maxOut = max(maxOut, out.Dist(v))
	}
	if len(targets) == 0 {
		return nil, nil
	}

	wasEnabled := w.Enabled()
	if err := g.SetEnabled(label, false); err != nil {
		return nil, err
	}
	defer g.SetEnabled(label, wasEnabled)

	var shortcuts []Shortcut
	for _, u := range in.Labels() {
		if u == label {
			continue
		}
		du := in.Dist(u)
		probe := graph.Limits{
			MaxHops:    lim.MaxHops,
			MaxWeight:  du + maxOut,
			MaxSettled: lim.MaxSettled,
		}
		witness, err := g.ShortestPathTree(u, "", graph.State{}, probe)
		if err != nil {
			return nil, err
		}

		uNode, _ := in.Node(u)
		for _, v := range targets {
			if v == u {
				continue
			}
			via := du + out.Dist(v)
			if via >= witness.Dist(v) {
				continue
			}
			vNode, _ := out.Node(v)
			shortcuts = append(shortcuts, Shortcut{
				From:    u,
				To:      v,
				Payload: graph.Concat(uNode.Edge.Payload, vNode.Edge.Payload),
				Cost:    via,
			})
		}
	}
	return shortcuts, nil
}
