package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient, max rank ~30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	// Union by rank.
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

// LargestComponent returns the labels of the largest weakly connected
// component (edge direction ignored), in ascending order. Ties go to the
// component containing the lowest label.
func LargestComponent(g *Graph) []string {
	labels := g.Labels()
	if len(labels) == 0 {
		return nil
	}
	index := make(map[string]uint32, len(labels))
	for i, l := range labels {
		index[l] = uint32(i)
	}

	uf := NewUnionFind(uint32(len(labels)))
	for _, e := range g.Edges() {
		uf.Union(index[e.From], index[e.To])
	}

	best := uint32(0)
	for i := range uint32(len(labels)) {
		if uf.Size(i) > uf.Size(best) {
			best = i
		}
	}
	bestRoot := uf.Find(best)

	nodes := make([]string, 0, uf.Size(best))
	for i, l := range labels {
		if uf.Find(uint32(i)) == bestRoot {
			nodes = append(nodes, l)
		}
	}
	return nodes
}

// FilterToComponent returns a new graph holding only the given vertices and
// the edges between them. Edge order is preserved.
func FilterToComponent(g *Graph, labels []string) *Graph {
	out := New()
	for _, l := range labels {
		v := g.vertices[l]
		if v == nil {
			continue
		}
		nv := out.AddVertex(l)
		nv.Lat, nv.Lon, nv.HasCoord, nv.enabled = v.Lat, v.Lon, v.HasCoord, v.enabled
	}
	for _, e := range g.Edges() {
		if out.HasVertex(e.From) && out.HasVertex(e.To) {
			_, _ = out.AddEdge(e.From, e.To, e.Payload)
		}
	}
	return out
}
