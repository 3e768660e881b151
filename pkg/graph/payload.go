package graph

import "math"

// MaxTime seeds backward searches whose arrival time is unknown, so that
// no edge is pruned for lack of time budget.
const MaxTime = int64(math.MaxInt64)

// State is the cost accumulated along a path. Weight never decreases as a
// path is extended; states are ordered by Weight.
type State struct {
	Time   int64   // unix seconds
	Weight float64 // generalized cost, seconds for street edges
}

// Less orders states by weight.
func (s State) Less(o State) bool { return s.Weight < o.Weight }

// Payload is the traversal behaviour carried by an edge. Implementations are
// immutable, so a payload may be referenced by several graphs at once.
//
// The closed set of implementations is Street, Link and Shortcut.
type Payload interface {
	// Walk returns the state after traversing the edge forward from s.
	Walk(s State) State
	// WalkBack returns the state at the edge's tail given the state s at its head.
	WalkBack(s State) State
	// Cost is the weight added by one traversal.
	Cost() float64

	payload()
}

// Street is a road segment traversed at a constant speed.
// A non-positive speed makes the street impassable.
type Street struct {
	Length float64 // meters
	Speed  float64 // meters per second
}

// Cost is the travel time in seconds, +Inf when the speed is not positive.
func (p Street) Cost() float64 {
	if p.Speed <= 0 {
		return math.Inf(1)
	}
	return p.Length / p.Speed
}

func (p Street) Walk(s State) State     { return advance(s, p.Cost(), 1) }
func (p Street) WalkBack(s State) State { return advance(s, p.Cost(), -1) }
func (Street) payload()                 {}

// Link is an edge with a fixed cost in seconds, e.g. a transfer or a
// connector between networks.
type Link struct {
	Seconds float64
}

func (p Link) Cost() float64          { return p.Seconds }
func (p Link) Walk(s State) State     { return advance(s, p.Seconds, 1) }
func (p Link) WalkBack(s State) State { return advance(s, p.Seconds, -1) }
func (Link) payload()                 {}

// Shortcut summarizes a path through contracted vertices. Walking it is
// equivalent to walking its parts in order.
type Shortcut struct {
	Parts []Payload
}

func (p Shortcut) Walk(s State) State {
	for _, part := range p.Parts {
		s = part.Walk(s)
	}
	return s
}

func (p Shortcut) WalkBack(s State) State {
	for i := len(p.Parts) - 1; i >= 0; i-- {
		s = p.Parts[i].WalkBack(s)
	}
	return s
}

// Cost is the sum of the parts' costs.
func (p Shortcut) Cost() float64 {
	var c float64
	for _, part := range p.Parts {
		c += part.Cost()
	}
	return c
}

func (Shortcut) payload() {}

// Concat returns a payload that walks a and then b.
func Concat(a, b Payload) Payload {
	return Shortcut{Parts: []Payload{a, b}}
}

func advance(s State, seconds float64, dir int64) State {
	if math.IsInf(seconds, 1) {
		return State{Time: s.Time, Weight: math.Inf(1)}
	}
	s.Time += dir * int64(math.Round(seconds))
	s.Weight += seconds
	return s
}
