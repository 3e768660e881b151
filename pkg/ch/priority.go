package ch

import (
	"container/heap"
	"slices"
	"strings"

	"github.com/azybler/tripch/pkg/graph"
)

// Key orders vertices for contraction. Lower Priority goes first; among equal
// priorities the vertex removing more edges goes first.
type Key struct {
	Priority int // edge difference: shortcuts needed minus degree
	Degree   int // in-degree plus out-degree
}

func (k Key) less(o Key) bool {
	if k.Priority != o.Priority {
		return k.Priority < o.Priority
	}
	return k.Degree > o.Degree
}

// Priority computes the contraction key of label along with the shortcuts
// contracting it would add.
func Priority(g *graph.Graph, label string, lim graph.Limits) (Key, []Shortcut, error) {
	shortcuts, err := ShortcutsNeeded(g, label, lim)
	if err != nil {
		return Key{}, nil, err
	}
	v := g.Vertex(label)
	deg := v.InDegree() + v.OutDegree()
	return Key{Priority: len(shortcuts) - deg, Degree: deg}, shortcuts, nil
}

// Queue holds uncontracted vertices tagged with the key they had when last
// computed. Keys are revalidated on pop rather than kept in sync.
type Queue struct {
	h        entryHeap
	requeues int
}

// Push adds label with its current key.
func (q *Queue) Push(label string, k Key) {
	heap.Push(&q.h, entry{label: label, key: k})
}

func (q *Queue) Len() int { return len(q.h) }

// Requeues is the number of entries put back because their key had changed.
func (q *Queue) Requeues() int { return q.requeues }

// QueueEntry is a queued label with the key it was last computed with.
type QueueEntry struct {
	Label string
	Key   Key
}

// Entries returns the queued labels and their keys in label order. Pushing
// them into an empty Queue reproduces the same pop order.
func (q *Queue) Entries() []QueueEntry {
	out := make([]QueueEntry, len(q.h))
	for i, e := range q.h {
		out[i] = QueueEntry{Label: e.label, Key: e.key}
	}
	slices.SortFunc(out, func(a, b QueueEntry) int { return strings.Compare(a.Label, b.Label) })
	return out
}

// Next pops the minimum entry and recomputes its key. An unchanged key is
// accepted and returned; a changed key is pushed back and the new minimum is
// tried. Each entry can be requeued at most once per call as long as
// recompute is deterministic, so the loop terminates. ok is false when the
// queue is empty.
func (q *Queue) Next(recompute func(label string) (Key, error)) (label string, k Key, ok bool, err error) {
	for q.Len() > 0 {
		e := heap.Pop(&q.h).(entry)
		cur, err := recompute(e.label)
		if err != nil {
			return "", Key{}, false, err
		}
		if cur == e.key {
			return e.label, cur, true, nil
		}
		q.requeues++
		heap.Push(&q.h, entry{label: e.label, key: cur})
	}
	return "", Key{}, false, nil
}

type entry struct {
	label string
	key   Key
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key.less(h[j].key)
	}
	return h[i].label < h[j].label
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
