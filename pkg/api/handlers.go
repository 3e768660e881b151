package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/azybler/tripch/pkg/graph"
	"github.com/azybler/tripch/pkg/routing"
)

// Service is what the handlers need from the routing engine.
type Service interface {
	routing.Router
	Query(ctx context.Context, source, target string, init graph.State) (*routing.Path, error)
}

var _ Service = (*routing.Engine)(nil)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	svc   Service
	stats StatsResponse
	now   func() time.Time
}

// NewHandlers creates handlers over svc.
func NewHandlers(svc Service, stats StatsResponse) *Handlers {
	return &Handlers{svc: svc, stats: stats, now: time.Now}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	result, err := h.svc.Route(r.Context(),
		routing.LatLng{Lat: req.Start.Lat, Lng: req.Start.Lng},
		routing.LatLng{Lat: req.End.Lat, Lng: req.End.Lng})
	if err != nil {
		writeRoutingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RouteResponse{
		Start:          snapJSON(result.Start),
		End:            snapJSON(result.End),
		Seconds:        result.Seconds,
		DistanceMeters: result.DistanceMeters,
		Legs:           result.Legs,
		Path:           pathJSON(result.Path),
	})
}

// HandlePath handles GET /api/v1/path?from=<label>&to=<label>[&depart=<unix>].
func (h *Handlers) HandlePath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "from")
		return
	}
	if to == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "to")
		return
	}
	depart := h.now().Unix()
	if s := q.Get("depart"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "depart")
			return
		}
		depart = v
	}

	path, err := h.svc.Query(r.Context(), from, to, graph.State{Time: depart})
	if err != nil {
		writeRoutingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pathJSON(path))
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

func snapJSON(s routing.SnapResult) SnapJSON {
	return SnapJSON{Vertex: s.Label, Lat: s.Lat, Lng: s.Lng, SnapMeters: s.Dist}
}

func pathJSON(p *routing.Path) PathJSON {
	if p == nil {
		return PathJSON{}
	}
	return PathJSON{
		From:     p.Source,
		To:       p.Target,
		Meeting:  p.Meeting,
		Seconds:  p.Weight,
		Vertices: p.Vertices(),
	}
}

func writeRoutingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrPointTooFar):
		writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "")
	case errors.Is(err, routing.ErrUnknownVertex):
		writeError(w, http.StatusNotFound, "unknown_vertex", "")
	case errors.Is(err, routing.ErrNoPath):
		writeError(w, http.StatusNotFound, "no_route_found", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
