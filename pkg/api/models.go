package api

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start LatLngJSON `json:"start"`
	End   LatLngJSON `json:"end"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SnapJSON is a query point matched to a vertex.
type SnapJSON struct {
	Vertex     string  `json:"vertex"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	SnapMeters float64 `json:"snap_meters"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	Start          SnapJSON `json:"start"`
	End            SnapJSON `json:"end"`
	Seconds        float64  `json:"seconds"`
	DistanceMeters float64  `json:"distance_meters"`
	Legs           int      `json:"legs"`
	Path           PathJSON `json:"path"`
}

// PathJSON describes a path through the hierarchy.
type PathJSON struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Meeting  string   `json:"meeting"`
	Seconds  float64  `json:"seconds"`
	Vertices []string `json:"vertices"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	BuildID      string `json:"build_id"`
	NumVertices  int    `json:"num_vertices"`
	NumUpEdges   int    `json:"num_up_edges"`
	NumDownEdges int    `json:"num_down_edges"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
