package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/azybler/tripch/pkg/ch"
	"github.com/azybler/tripch/pkg/graph"
)

// ErrIncomplete is returned when an engine is built over a partial hierarchy.
var ErrIncomplete = errors.New("hierarchy is incomplete")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// RouteResult is the output of a coordinate route query.
type RouteResult struct {
	Start, End     SnapResult
	Path           *Path
	Seconds        float64
	DistanceMeters float64 // sum of street lengths along the unpacked path
	Legs           int     // primitive edges after unpacking
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

var _ Router = (*Engine)(nil)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Limits        graph.Limits // bounds on each one-sided search; zero is unbounded
	MaxSnapMeters float64      // 0 means DefaultMaxSnapMeters
	Logger        *slog.Logger // nil means slog.Default()
}

// Engine answers queries over a completed hierarchy. The hierarchy must not
// be modified afterwards; Engine methods are then safe for concurrent use.
type Engine struct {
	h       *ch.Hierarchy
	snapper *Snapper
	opt     EngineOptions
	logger  *slog.Logger
}

// NewEngine creates a routing engine over h.
func NewEngine(h *ch.Hierarchy, opt EngineOptions) (*Engine, error) {
	if h == nil || h.Up == nil || h.Down == nil {
		return nil, fmt.Errorf("%w: missing up or down graph", ErrIncomplete)
	}
	if !h.Complete() {
		return nil, fmt.Errorf("%w: %d vertices not contracted", ErrIncomplete, h.Remainder.NumVertices())
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		h:       h,
		snapper: NewSnapper(h.Up, opt.MaxSnapMeters),
		opt:     opt,
		logger:  logger,
	}
	logger.Info("routing engine ready",
		"build_id", h.BuildID, "vertices", h.Up.NumVertices(),
		"up_edges", h.Up.NumEdges(), "down_edges", h.Down.NumEdges(), "snap_points", e.snapper.Len())
	return e, nil
}

// Query finds the cheapest path between two vertex labels departing at init.
func (e *Engine) Query(ctx context.Context, source, target string, init graph.State) (*Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Query(e.h.Up, e.h.Down, source, target, init, e.opt.Limits)
}

// Route snaps both coordinates to their nearest vertices and queries
// between them, departing now.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	return e.RouteAt(ctx, start, end, time.Now())
}

// RouteAt is Route departing at depart.
func (e *Engine) RouteAt(ctx context.Context, start, end LatLng, depart time.Time) (*RouteResult, error) {
	startSnap, err := e.snapper.Snap(start.Lat, start.Lng)
	if err != nil {
		return nil, fmt.Errorf("snap start: %w", err)
	}
	endSnap, err := e.snapper.Snap(end.Lat, end.Lng)
	if err != nil {
		return nil, fmt.Errorf("snap end: %w", err)
	}

	began := time.Now()
	path, err := e.Query(ctx, startSnap.Label, endSnap.Label, graph.State{Time: depart.Unix()})
	if err != nil {
		return nil, err
	}
	prims, err := Unpack(path.Payloads)
	if err != nil {
		return nil, err
	}

	res := &RouteResult{
		Start:   startSnap,
		End:     endSnap,
		Path:    path,
		Seconds: path.Weight,
		Legs:    len(prims),
	}
	for _, p := range prims {
		if s, ok := p.(graph.Street); ok {
			res.DistanceMeters += s.Length
		}
	}
	e.logger.Debug("route",
		"from", startSnap.Label, "to", endSnap.Label, "meeting", path.Meeting,
		"seconds", path.Weight, "legs", len(prims), "elapsed", time.Since(began))
	return res, nil
}
