package graph

import (
	"fmt"
	"math"
	"slices"
)

// Limits bounds a shortest-path-tree search. Zero fields are unbounded.
type Limits struct {
	MaxHops    int     // edges from the root
	MaxWeight  float64 // weight accumulated since the root; <= 0 is unbounded
	MaxSettled int     // vertices settled before giving up
}

// TreeNode records how a vertex was first reached.
type TreeNode struct {
	State State
	Edge  *Edge // predecessor edge; nil for the root
	Hops  int
}

// Tree is the result of a bounded search. For a forward tree the predecessor
// edge of v ends at v; for a backward tree it starts at v.
type Tree struct {
	Root  string
	Init  State
	back  bool
	nodes map[string]*TreeNode
}

// Node returns the node for label, if the search reached it.
func (t *Tree) Node(label string) (*TreeNode, bool) {
	n, ok := t.nodes[label]
	return n, ok
}

// Dist returns the weight accumulated between the root and label, or +Inf
// when the search did not reach it.
func (t *Tree) Dist(label string) float64 {
	n, ok := t.nodes[label]
	if !ok {
		return math.Inf(1)
	}
	return n.State.Weight - t.Init.Weight
}

// Len is the number of vertices the search reached.
func (t *Tree) Len() int { return len(t.nodes) }

// Labels returns the reached labels in ascending order.
func (t *Tree) Labels() []string {
	labels := make([]string, 0, len(t.nodes))
	for l := range t.nodes {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// PathTo returns the tree edges between the root and label in travel order:
// root to label for a forward tree, label to root for a backward tree.
func (t *Tree) PathTo(label string) []*Edge {
	var path []*Edge
	n, ok := t.nodes[label]
	for ok && n.Edge != nil {
		path = append(path, n.Edge)
		if t.back {
			n, ok = t.nodes[n.Edge.To]
		} else {
			n, ok = t.nodes[n.Edge.From]
		}
	}
	if !t.back {
		slices.Reverse(path)
	}
	return path
}

// ShortestPathTree searches forward from `from` along outgoing edges. If `to`
// is non-empty the search stops once `to` is settled.
func (g *Graph) ShortestPathTree(from, to string, init State, lim Limits) (*Tree, error) {
	return g.search(from, to, init, lim, false)
}

// ShortestPathTreeBack searches backward from `to` along incoming edges,
// walking each payload in reverse. If `from` is non-empty the search stops
// once `from` is settled.
func (g *Graph) ShortestPathTreeBack(to, from string, init State, lim Limits) (*Tree, error) {
	return g.search(to, from, init, lim, true)
}

func (g *Graph) search(root, target string, init State, lim Limits, back bool) (*Tree, error) {
	if _, ok := g.vertices[root]; !ok {
		return nil, fmt.Errorf("search from %q: %w", root, ErrVertexNotFound)
	}

	t := &Tree{Root: root, Init: init, back: back, nodes: make(map[string]*TreeNode)}
	t.nodes[root] = &TreeNode{State: init}

	var h searchHeap
	h.Push(searchItem{label: root, state: init})
	settled := make(map[string]struct{})

	for h.Len() > 0 {
		cur := h.Pop()

		// Skip stale entries.
		if _, done := settled[cur.label]; done {
			continue
		}
		if cur.state.Weight > t.nodes[cur.label].State.Weight {
			continue
		}
		settled[cur.label] = struct{}{}

		if cur.label == target {
			break
		}
		if lim.MaxSettled > 0 && len(settled) >= lim.MaxSettled {
			break
		}
		if lim.MaxHops > 0 && cur.hops >= lim.MaxHops {
			continue
		}

		v, ok := g.vertices[cur.label]
		if !ok {
			return nil, fmt.Errorf("search: settled %q: %w", cur.label, ErrVertexNotFound)
		}
		edges := v.out
		if back {
			edges = v.in
		}
		for _, e := range edges {
			next := e.To
			if back {
				next = e.From
			}
			nv, ok := g.vertices[next]
			if !ok {
				return nil, fmt.Errorf("search: edge %d to %q: %w", e.ID, next, ErrVertexNotFound)
			}
			if !nv.enabled {
				continue
			}

			var ns State
			if back {
				ns = e.Payload.WalkBack(cur.state)
			} else {
				ns = e.Payload.Walk(cur.state)
			}
			if math.IsInf(ns.Weight, 1) {
				continue
			}
			if lim.MaxWeight > 0 && ns.Weight-init.Weight > lim.MaxWeight {
				continue
			}
			if prev, seen := t.nodes[next]; seen && ns.Weight >= prev.State.Weight {
				continue
			}
			t.nodes[next] = &TreeNode{State: ns, Edge: e, Hops: cur.hops + 1}
			h.Push(searchItem{label: next, state: ns, hops: cur.hops + 1})
		}
	}

	return t, nil
}
