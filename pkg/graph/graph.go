package graph

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrVertexNotFound is returned when an operation references a label the graph does not hold.
	ErrVertexNotFound = errors.New("vertex not found")
	// ErrNilPayload is returned when an edge is added without a payload.
	ErrNilPayload = errors.New("nil edge payload")
)

// EdgeID identifies an edge within one graph. IDs increase in insertion order.
type EdgeID uint64

// Edge is a directed edge between two labelled vertices.
type Edge struct {
	ID      EdgeID
	From    string
	To      string
	Payload Payload
}

// Vertex is a labelled vertex with its incident edges.
// Disabled vertices stay in the graph but are never entered by a search.
type Vertex struct {
	Label    string
	Lat, Lon float64
	HasCoord bool

	enabled bool
	out     []*Edge
	in      []*Edge
}

// Enabled reports whether searches may enter the vertex.
func (v *Vertex) Enabled() bool { return v.enabled }

// Out returns the outgoing edges. The slice must not be modified.
func (v *Vertex) Out() []*Edge { return v.out }

// In returns the incoming edges. The slice must not be modified.
func (v *Vertex) In() []*Edge { return v.in }

// OutDegree is the number of outgoing edges, a self-loop included.
func (v *Vertex) OutDegree() int { return len(v.out) }

// InDegree is the number of incoming edges, a self-loop included.
func (v *Vertex) InDegree() int { return len(v.in) }

// Graph is a directed multigraph keyed by string labels.
//
// A Graph is not safe for concurrent mutation. Concurrent read-only use
// (searches, lookups) is safe once mutation has stopped.
type Graph struct {
	vertices map[string]*Vertex
	numEdges int
	nextEdge EdgeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{vertices: make(map[string]*Vertex)}
}

// AddVertex adds an enabled vertex, or returns the existing one with that label.
func (g *Graph) AddVertex(label string) *Vertex {
	if v, ok := g.vertices[label]; ok {
		return v
	}
	v := &Vertex{Label: label, enabled: true}
	g.vertices[label] = v
	return v
}

// Vertex returns the vertex with the given label, or nil.
func (g *Graph) Vertex(label string) *Vertex {
	return g.vertices[label]
}

// HasVertex reports whether the label is present.
func (g *Graph) HasVertex(label string) bool {
	_, ok := g.vertices[label]
	return ok
}

// SetCoord attaches a coordinate to an existing vertex.
func (g *Graph) SetCoord(label string, lat, lon float64) error {
	v, ok := g.vertices[label]
	if !ok {
		return fmt.Errorf("set coord %q: %w", label, ErrVertexNotFound)
	}
	v.Lat, v.Lon, v.HasCoord = lat, lon, true
	return nil
}

// AddEdge adds a directed edge between two existing vertices.
func (g *Graph) AddEdge(from, to string, p Payload) (*Edge, error) {
	if p == nil {
		return nil, ErrNilPayload
	}
	fv, ok := g.vertices[from]
	if !ok {
		return nil, fmt.Errorf("add edge %q->%q: from: %w", from, to, ErrVertexNotFound)
	}
	tv, ok := g.vertices[to]
	if !ok {
		return nil, fmt.Errorf("add edge %q->%q: to: %w", from, to, ErrVertexNotFound)
	}
	e := &Edge{ID: g.nextEdge, From: from, To: to, Payload: p}
	g.nextEdge++
	g.numEdges++
	fv.out = append(fv.out, e)
	tv.in = append(tv.in, e)
	return e, nil
}

// RemoveVertex detaches the vertex and every incident edge from the graph and
// returns those edges (outgoing first, then incoming; a self-loop appears once).
// Payloads are immutable and remain valid; callers may re-add the edges elsewhere.
func (g *Graph) RemoveVertex(label string) ([]*Edge, error) {
	v, ok := g.vertices[label]
	if !ok {
		return nil, fmt.Errorf("remove %q: %w", label, ErrVertexNotFound)
	}

	removed := make([]*Edge, 0, len(v.out)+len(v.in))
	for _, e := range v.out {
		if e.To != label {
			nb, ok := g.vertices[e.To]
			if !ok {
				return nil, fmt.Errorf("remove %q: dangling edge %d to %q: %w", label, e.ID, e.To, ErrVertexNotFound)
			}
			nb.in = deleteEdge(nb.in, e)
		}
		removed = append(removed, e)
	}
	for _, e := range v.in {
		if e.From == label {
			continue // self-loop, already collected
		}
		nb, ok := g.vertices[e.From]
		if !ok {
			return nil, fmt.Errorf("remove %q: dangling edge %d from %q: %w", label, e.ID, e.From, ErrVertexNotFound)
		}
		nb.out = deleteEdge(nb.out, e)
		removed = append(removed, e)
	}

	delete(g.vertices, label)
	g.numEdges -= len(removed)
	return removed, nil
}

func deleteEdge(edges []*Edge, target *Edge) []*Edge {
	return slices.DeleteFunc(edges, func(e *Edge) bool { return e == target })
}

// SetEnabled enables or disables a vertex without removing it.
func (g *Graph) SetEnabled(label string, enabled bool) error {
	v, ok := g.vertices[label]
	if !ok {
		return fmt.Errorf("set enabled %q: %w", label, ErrVertexNotFound)
	}
	v.enabled = enabled
	return nil
}

// NumVertices returns the number of vertices, enabled or not.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return g.numEdges }

// Labels returns all vertex labels in ascending order.
func (g *Graph) Labels() []string {
	labels := make([]string, 0, len(g.vertices))
	for l := range g.vertices {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// Edges returns every edge ordered by ID.
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, g.numEdges)
	for _, v := range g.vertices {
		edges = append(edges, v.out...)
	}
	slices.SortFunc(edges, func(a, b *Edge) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return edges
}

// Clone returns a copy with the same vertices, flags, coordinates and edges.
// Edge IDs are preserved; payloads are shared.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		vertices: make(map[string]*Vertex, len(g.vertices)),
		numEdges: g.numEdges,
		nextEdge: g.nextEdge,
	}
	for l, v := range g.vertices {
		c.vertices[l] = &Vertex{Label: l, Lat: v.Lat, Lon: v.Lon, HasCoord: v.HasCoord, enabled: v.enabled}
	}
	for _, e := range g.Edges() {
		ce := &Edge{ID: e.ID, From: e.From, To: e.To, Payload: e.Payload}
		c.vertices[e.From].out = append(c.vertices[e.From].out, ce)
		c.vertices[e.To].in = append(c.vertices[e.To].in, ce)
	}
	return c
}
