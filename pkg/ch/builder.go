package ch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/azybler/tripch/pkg/graph"
)

// Options configures a Builder. Zero values select the defaults.
type Options struct {
	HopLimit    int // witness probe depth; 0 means DefaultHopLimit, < 0 unbounded
	MaxSettled  int // witness probe size; 0 means DefaultMaxSettled, < 0 unbounded
	MaxContract int // vertices contracted per Run; 0 means all

	Logger  *slog.Logger // nil means slog.Default()
	Metrics *Metrics     // nil disables metrics
}

func (o Options) limits() graph.Limits {
	lim := graph.Limits{MaxHops: o.HopLimit, MaxSettled: o.MaxSettled}
	switch {
	case lim.MaxHops == 0:
		lim.MaxHops = DefaultHopLimit
	case lim.MaxHops < 0:
		lim.MaxHops = 0
	}
	switch {
	case lim.MaxSettled == 0:
		lim.MaxSettled = DefaultMaxSettled
	case lim.MaxSettled < 0:
		lim.MaxSettled = 0
	}
	return lim
}

// Builder contracts a working graph one vertex at a time, moving each
// contracted vertex's edges into the Up and Down graphs. It is not safe for
// concurrent use.
type Builder struct {
	id    uuid.UUID
	work  *graph.Graph
	up    *graph.Graph
	down  *graph.Graph
	order []string
	queue Queue

	opt    Options
	lim    graph.Limits
	logger *slog.Logger

	// Shortcuts found by the most recent recompute; reused once its vertex
	// is accepted.
	lastLabel     string
	lastShortcuts []Shortcut

	total     int // vertices when the build started
	shortcuts int
	err       error
}

// NewBuilder starts a build over a copy of g; g itself is not modified.
func NewBuilder(g *graph.Graph, opt Options) (*Builder, error) {
	up, down := graph.New(), graph.New()
	for _, l := range g.Labels() {
		copyVertex(up, g, l)
		copyVertex(down, g, l)
	}
	return newBuilder(uuid.New(), g.Clone(), up, down, nil, nil, opt)
}

// Resume continues a partial build from a saved hierarchy. The builder takes
// ownership of h's graphs. The queue keys stored with h are reused, so with
// the same witness limits the result matches an uninterrupted build. A
// hierarchy without stored keys has its priorities recomputed from the
// remainder; distances are preserved but the order may differ.
func Resume(h *Hierarchy, opt Options) (*Builder, error) {
	if h.Up == nil || h.Down == nil {
		return nil, fmt.Errorf("resume: %w: hierarchy has no up or down graph", ErrInvariant)
	}
	work := h.Remainder
	if work == nil {
		work = graph.New()
	}
	if h.Queue != nil {
		if err := checkQueue(work, h.Queue); err != nil {
			return nil, fmt.Errorf("resume: %w", err)
		}
	}
	return newBuilder(h.BuildID, work, h.Up, h.Down, slices.Clone(h.Order), h.Queue, opt)
}

// checkQueue verifies that the stored queue covers the remainder exactly.
func checkQueue(work *graph.Graph, queue []QueueEntry) error {
	if len(queue) != work.NumVertices() {
		return fmt.Errorf("%w: queue has %d entries for %d remaining vertices", ErrMismatch, len(queue), work.NumVertices())
	}
	seen := make(map[string]struct{}, len(queue))
	for _, e := range queue {
		if !work.HasVertex(e.Label) {
			return fmt.Errorf("%w: queued vertex %q is not in the remainder", ErrMismatch, e.Label)
		}
		if _, dup := seen[e.Label]; dup {
			return fmt.Errorf("%w: vertex %q queued twice", ErrMismatch, e.Label)
		}
		seen[e.Label] = struct{}{}
	}
	return nil
}

func newBuilder(id uuid.UUID, work, up, down *graph.Graph, order []string, keys []QueueEntry, opt Options) (*Builder, error) {
	b := &Builder{
		id:     id,
		work:   work,
		up:     up,
		down:   down,
		order:  order,
		opt:    opt,
		lim:    opt.limits(),
		logger: opt.Logger,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	if keys != nil {
		for _, e := range keys {
			b.queue.Push(e.Label, e.Key)
		}
	} else {
		for _, l := range work.Labels() {
			k, _, err := Priority(work, l, b.lim)
			if err != nil {
				return nil, fmt.Errorf("initial priority of %q: %w", l, err)
			}
			b.queue.Push(l, k)
		}
	}
	b.total = len(order) + work.NumVertices()
	if m := opt.Metrics; m != nil {
		m.Remaining.Set(float64(work.NumVertices()))
	}

	b.logger.Info("contraction queue ready",
		"build_id", id, "vertices", work.NumVertices(), "edges", work.NumEdges(),
		"already_contracted", len(order), "hop_limit", b.lim.MaxHops)
	return b, nil
}

func copyVertex(dst, src *graph.Graph, label string) {
	v := src.Vertex(label)
	nv := dst.AddVertex(label)
	nv.Lat, nv.Lon, nv.HasCoord = v.Lat, v.Lon, v.HasCoord
}

// Done reports whether the working graph is exhausted.
func (b *Builder) Done() bool { return b.queue.Len() == 0 }

// Err returns the invariant violation that stopped the builder, if any.
func (b *Builder) Err() error { return b.err }

// Contracted is the number of vertices contracted so far, including those
// contracted before a Resume.
func (b *Builder) Contracted() int { return len(b.order) }

func (b *Builder) recompute(label string) (Key, error) {
	k, shortcuts, err := Priority(b.work, label, b.lim)
	if err != nil {
		return Key{}, err
	}
	b.lastLabel, b.lastShortcuts = label, shortcuts
	return k, nil
}

// Step contracts the next vertex. It returns false once the working graph is
// empty. After an error the builder refuses further steps.
func (b *Builder) Step() (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	start := time.Now()
	requeuesBefore := b.queue.Requeues()

	label, _, ok, err := b.queue.Next(b.recompute)
	if err != nil {
		return false, b.fail(fmt.Errorf("revalidate queue: %w", err))
	}
	if !ok {
		return false, nil
	}
	if b.lastLabel != label {
		return false, b.fail(fmt.Errorf("accepted %q without recomputing it", label))
	}
	shortcuts := b.lastShortcuts
	b.lastLabel, b.lastShortcuts = "", nil

	for _, s := range shortcuts {
		if _, err := b.work.AddEdge(s.From, s.To, s.Payload); err != nil {
			return false, b.fail(fmt.Errorf("add shortcut %s->%s via %s: %w", s.From, s.To, label, err))
		}
	}
	b.order = append(b.order, label)

	removed, err := b.work.RemoveVertex(label)
	if err != nil {
		return false, b.fail(fmt.Errorf("remove %q: %w", label, err))
	}
	for _, e := range removed {
		dst := b.down
		if e.From == label {
			dst = b.up
		}
		if _, err := dst.AddEdge(e.From, e.To, e.Payload); err != nil {
			return false, b.fail(fmt.Errorf("move edge %s->%s: %w", e.From, e.To, err))
		}
	}
	b.shortcuts += len(shortcuts)

	if m := b.opt.Metrics; m != nil {
		m.Contracted.Inc()
		m.Shortcuts.Add(float64(len(shortcuts)))
		m.Requeues.Add(float64(b.queue.Requeues() - requeuesBefore))
		m.Remaining.Set(float64(b.queue.Len()))
		m.ShortcutsPerContraction.Observe(float64(len(shortcuts)))
		m.StepSeconds.Observe(time.Since(start).Seconds())
	}
	return true, nil
}

func (b *Builder) fail(err error) error {
	b.err = fmt.Errorf("%w: %w", ErrInvariant, err)
	b.logger.Error("contraction aborted", "build_id", b.id, "contracted", len(b.order), "error", err)
	return b.err
}

// Run contracts vertices until the working graph is empty or MaxContract
// vertices have been contracted by this call. It may be called again to
// continue a budgeted build. Cancellation is checked between steps and
// leaves the builder consistent.
func (b *Builder) Run(ctx context.Context) error {
	start := time.Now()
	var n int
	for !b.Done() {
		if b.opt.MaxContract > 0 && n >= b.opt.MaxContract {
			b.logger.Info("contraction budget reached",
				"contracted", n, "remaining", b.queue.Len(), "budget", b.opt.MaxContract)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := b.Step()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		n++

		// Log more often as the end approaches.
		remaining := b.queue.Len()
		interval := 50000
		switch {
		case remaining < 1000:
			interval = 100
		case remaining < 10000:
			interval = 1000
		case remaining < 100000:
			interval = 10000
		}
		if len(b.order)%interval == 0 {
			b.logger.Info("contraction progress",
				"contracted", len(b.order), "total", b.total, "shortcuts", b.shortcuts)
		}
	}

	b.logger.Info("contraction complete",
		"build_id", b.id, "contracted", len(b.order), "shortcuts", b.shortcuts,
		"up_edges", b.up.NumEdges(), "down_edges", b.down.NumEdges(),
		"requeues", b.queue.Requeues(), "elapsed", time.Since(start))
	return nil
}

// Hierarchy returns the build so far. The graphs are shared with the
// builder and change if it takes further steps.
func (b *Builder) Hierarchy() *Hierarchy {
	return &Hierarchy{
		BuildID:   b.id,
		Up:        b.up,
		Down:      b.down,
		Remainder: b.work,
		Order:     slices.Clone(b.order),
		Queue:     b.queue.Entries(),
	}
}
