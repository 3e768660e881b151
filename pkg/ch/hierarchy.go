package ch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/azybler/tripch/pkg/graph"
)

// Artifact file names inside a hierarchy directory.
const (
	UpFile        = "up.bin"
	DownFile      = "down.bin"
	RemainderFile = "remainder.bin"
	OrderFile     = "order.bin"
	QueueFile     = "queue.bin"
)

// ErrMismatch is returned when the artifacts in a directory do not belong to
// the same build, or to the same save of it.
var ErrMismatch = errors.New("hierarchy artifacts do not match")

// Hierarchy is the output of a (possibly partial) build. Up holds each
// contracted vertex's edges to later-contracted vertices; Down holds the
// edges into it from later-contracted vertices, in their original direction.
// Remainder is the part of the working graph not yet contracted, and Queue
// holds its vertices with the keys the builder last computed for them.
type Hierarchy struct {
	BuildID   uuid.UUID
	Up        *graph.Graph
	Down      *graph.Graph
	Remainder *graph.Graph
	Order     []string
	Queue     []QueueEntry

	rankOnce sync.Once
	rank     map[string]int
}

// Complete reports whether every vertex has been contracted.
func (h *Hierarchy) Complete() bool {
	return h.Remainder == nil || h.Remainder.NumVertices() == 0
}

// Rank returns the contraction position of label.
func (h *Hierarchy) Rank(label string) (int, bool) {
	h.rankOnce.Do(func() {
		h.rank = make(map[string]int, len(h.Order))
		for i, l := range h.Order {
			h.rank[l] = i
		}
	})
	r, ok := h.rank[label]
	return r, ok
}

// Save writes the five artifacts into dir, creating it if needed. Every
// artifact carries a fresh save ID so that Load can detect a directory left
// half-written by an interrupted save.
func (h *Hierarchy) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	remainder := h.Remainder
	if remainder == nil {
		remainder = graph.New()
	}
	saveID := uuid.New()
	meta := func(kind graph.Kind) graph.Meta {
		return graph.Meta{Kind: kind, BuildID: h.BuildID, SaveID: saveID}
	}

	var g errgroup.Group
	writeGraph := func(name string, kind graph.Kind, gr *graph.Graph) {
		g.Go(func() error {
			if err := graph.WriteBinary(filepath.Join(dir, name), gr, meta(kind)); err != nil {
				return fmt.Errorf("write %s graph: %w", kind, err)
			}
			return nil
		})
	}
	writeGraph(UpFile, graph.KindUp, h.Up)
	writeGraph(DownFile, graph.KindDown, h.Down)
	writeGraph(RemainderFile, graph.KindRemainder, remainder)
	g.Go(func() error {
		if err := graph.WriteLabels(filepath.Join(dir, OrderFile), h.Order, meta(graph.KindOrder)); err != nil {
			return fmt.Errorf("write order: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		entries := make([]graph.KeyedLabel, len(h.Queue))
		for i, e := range h.Queue {
			entries[i] = graph.KeyedLabel{Label: e.Label, Primary: int64(e.Key.Priority), Secondary: int64(e.Key.Degree)}
		}
		if err := graph.WriteKeyedLabels(filepath.Join(dir, QueueFile), entries, meta(graph.KindQueue)); err != nil {
			return fmt.Errorf("write queue: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Load reads a hierarchy written by Save.
func Load(dir string) (*Hierarchy, error) {
	h := &Hierarchy{}
	var metas [5]graph.Meta

	var g errgroup.Group
	readGraph := func(i int, name string, dst **graph.Graph) {
		g.Go(func() error {
			gr, meta, err := graph.ReadBinary(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			*dst, metas[i] = gr, meta
			return nil
		})
	}
	readGraph(0, UpFile, &h.Up)
	readGraph(1, DownFile, &h.Down)
	readGraph(2, RemainderFile, &h.Remainder)
	g.Go(func() error {
		order, meta, err := graph.ReadLabels(filepath.Join(dir, OrderFile))
		if err != nil {
			return fmt.Errorf("read %s: %w", OrderFile, err)
		}
		h.Order, metas[3] = order, meta
		return nil
	})
	g.Go(func() error {
		entries, meta, err := graph.ReadKeyedLabels(filepath.Join(dir, QueueFile))
		if err != nil {
			return fmt.Errorf("read %s: %w", QueueFile, err)
		}
		h.Queue = make([]QueueEntry, len(entries))
		for i, e := range entries {
			h.Queue[i] = QueueEntry{Label: e.Label, Key: Key{Priority: int(e.Primary), Degree: int(e.Secondary)}}
		}
		metas[4] = meta
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	want := []graph.Kind{graph.KindUp, graph.KindDown, graph.KindRemainder, graph.KindOrder, graph.KindQueue}
	for i, m := range metas {
		if m.Kind != want[i] {
			return nil, fmt.Errorf("%w: expected %s artifact, found %s", ErrMismatch, want[i], m.Kind)
		}
		if m.BuildID != metas[0].BuildID {
			return nil, fmt.Errorf("%w: %s belongs to build %s, up graph to %s",
				ErrMismatch, m.Kind, uuid.UUID(m.BuildID), uuid.UUID(metas[0].BuildID))
		}
		if m.SaveID != metas[0].SaveID {
			return nil, fmt.Errorf("%w: %s was written by save %s, up graph by %s",
				ErrMismatch, m.Kind, uuid.UUID(m.SaveID), uuid.UUID(metas[0].SaveID))
		}
	}
	h.BuildID = uuid.UUID(metas[0].BuildID)
	return h, nil
}
