package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/tripch/pkg/ch"
	"github.com/azybler/tripch/pkg/config"
	"github.com/azybler/tripch/pkg/graph"
	"github.com/azybler/tripch/pkg/routing"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// mockService implements Service for testing.
type mockService struct {
	result *routing.RouteResult
	path   *routing.Path
	err    error
	init   graph.State
}

func (m *mockService) Route(ctx context.Context, start, end routing.LatLng) (*routing.RouteResult, error) {
	return m.result, m.err
}

func (m *mockService) Query(ctx context.Context, source, target string, init graph.State) (*routing.Path, error) {
	m.init = init
	return m.path, m.err
}

const validBody = `{"start":{"lat":1.3,"lng":103.8},"end":{"lat":1.35,"lng":103.85}}`

func postRoute(h *Handlers, body string, asJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	if asJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.HandleRoute(w, req)
	return w
}

func TestHandleRoute_Success(t *testing.T) {
	mock := &mockService{
		result: &routing.RouteResult{
			Start:          routing.SnapResult{Label: "n1", Lat: 1.3, Lng: 103.8, Dist: 3},
			End:            routing.SnapResult{Label: "n3", Lat: 1.35, Lng: 103.85, Dist: 4},
			Seconds:        120,
			DistanceMeters: 1234.5,
			Legs:           3,
			Path: &routing.Path{
				Source: "n1", Target: "n3", Meeting: "n3", Weight: 120,
				Edges: []*graph.Edge{{From: "n1", To: "n3"}},
			},
		},
	}
	w := postRoute(NewHandlers(mock, StatsResponse{}), validBody, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RouteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1234.5, resp.DistanceMeters)
	assert.Equal(t, "n1", resp.Start.Vertex)
	assert.Equal(t, 3, resp.Legs)
	assert.Equal(t, []string{"n1", "n3"}, resp.Path.Vertices)
}

func TestHandleRoute_BadRequests(t *testing.T) {
	h := NewHandlers(&mockService{}, StatsResponse{})

	tests := []struct {
		name   string
		body   string
		asJSON bool
		field  string
	}{
		{"invalid json", "not json", true, ""},
		{"missing content type", validBody, false, ""},
		{"latitude out of range", `{"start":{"lat":91.0,"lng":103.8},"end":{"lat":1.35,"lng":103.85}}`, true, "start"},
		{"longitude out of range", `{"start":{"lat":1.3,"lng":103.8},"end":{"lat":1.35,"lng":181}}`, true, "end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postRoute(h, tt.body, tt.asJSON)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestHandleRoute_Errors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("a to b: %w", routing.ErrNoPath), http.StatusNotFound, "no_route_found"},
		{fmt.Errorf("snap start: %w", routing.ErrPointTooFar), http.StatusUnprocessableEntity, "point_too_far_from_road"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "request_timeout"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := postRoute(NewHandlers(&mockService{err: tt.err}, StatsResponse{}), validBody, true)
			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestHandlePath(t *testing.T) {
	mock := &mockService{path: &routing.Path{Source: "A", Target: "C", Meeting: "C", Weight: 2}}
	h := NewHandlers(mock, StatsResponse{})
	h.now = func() time.Time { return time.Unix(5000, 0) }

	w := httptest.NewRecorder()
	h.HandlePath(w, httptest.NewRequest("GET", "/api/v1/path?from=A&to=C", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp PathJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "C", resp.Meeting)
	assert.Equal(t, []string{"A"}, resp.Vertices)
	assert.Equal(t, int64(5000), mock.init.Time)

	w = httptest.NewRecorder()
	h.HandlePath(w, httptest.NewRequest("GET", "/api/v1/path?from=A&to=C&depart=77", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(77), mock.init.Time)

	w = httptest.NewRecorder()
	h.HandlePath(w, httptest.NewRequest("GET", "/api/v1/path?from=A&to=C&depart=soon", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandlePath(w, httptest.NewRequest("GET", "/api/v1/path?from=A", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mock.err = fmt.Errorf("target: %w", routing.ErrUnknownVertex)
	w = httptest.NewRecorder()
	h.HandlePath(w, httptest.NewRequest("GET", "/api/v1/path?from=A&to=Q", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_vertex")
}

func TestHandleHealth(t *testing.T) {
	w := httptest.NewRecorder()
	NewHandlers(&mockService{}, StatsResponse{}).HandleHealth(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleStats(t *testing.T) {
	stats := StatsResponse{BuildID: "abc", NumVertices: 500000, NumUpEdges: 1000000, NumDownEdges: 900000}
	w := httptest.NewRecorder()
	NewHandlers(&mockService{}, stats).HandleStats(w, httptest.NewRequest("GET", "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, stats, resp)
}

func TestServerEndToEnd(t *testing.T) {
	g := graph.New()
	for i, l := range []string{"A", "B", "C"} {
		g.AddVertex(l)
		require.NoError(t, g.SetCoord(l, 1.3, 103.8+float64(i)*0.001))
	}
	for _, e := range [][2]string{{"A", "B"}, {"B", "C"}} {
		_, err := g.AddEdge(e[0], e[1], graph.Street{Length: 111, Speed: 11.1})
		require.NoError(t, err)
	}
	b, err := ch.NewBuilder(g, ch.Options{Logger: quiet})
	require.NoError(t, err)
	require.NoError(t, b.Run(context.Background()))
	engine, err := routing.NewEngine(b.Hierarchy(), routing.EngineOptions{Logger: quiet})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv := NewServer(config.Default().Server, NewHandlers(engine, StatsResponse{}), reg, quiet)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/route", "application/json",
		strings.NewReader(`{"start":{"lat":1.3,"lng":103.8},"end":{"lat":1.3,"lng":103.802}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var route RouteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&route))
	assert.InDelta(t, 20.0, route.Seconds, 1e-9)
	assert.InDelta(t, 222.0, route.DistanceMeters, 1e-9)
	assert.Equal(t, 2, route.Legs)

	resp2, err := http.Get(ts.URL + "/api/v1/path?from=C&to=A")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)

	metricsResp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tripch_http_requests_total{code="200",route="route"} 1`)
	assert.Contains(t, string(body), `tripch_http_requests_total{code="404",route="path"} 1`)
}
