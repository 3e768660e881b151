package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/azybler/tripch/pkg/geo"
)

// RawEdge represents a directed street edge parsed from OSM data.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Length     float64 // meters
	Speed      float64 // meters per second
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// NodeLabel is the graph vertex label of an OSM node.
func NodeLabel(id osm.NodeID) string {
	return "n" + strconv.FormatInt(int64(id), 10)
}

// Profile selects which ways are traversable and how fast.
type Profile struct {
	Name string
	// Speeds maps highway tag values to travel speed in km/h.
	// Ways whose highway value is absent are skipped.
	Speeds map[string]float64
	// IgnoreOneway treats every way as bidirectional (walking).
	IgnoreOneway bool
	// Deny lists tag key/value pairs that exclude a way.
	Deny map[string][]string
}

// Car is the driving profile.
var Car = Profile{
	Name: "car",
	Speeds: map[string]float64{
		"motorway":       90,
		"motorway_link":  60,
		"trunk":          70,
		"trunk_link":     50,
		"primary":        60,
		"primary_link":   45,
		"secondary":      50,
		"secondary_link": 40,
		"tertiary":       40,
		"tertiary_link":  35,
		"unclassified":   30,
		"residential":    30,
		"living_street":  10,
		"service":        15,
	},
	Deny: map[string][]string{
		"area":          {"yes"},
		"access":        {"no", "private"},
		"motor_vehicle": {"no"},
	},
}

// Foot is the walking profile.
var Foot = Profile{
	Name: "foot",
	Speeds: map[string]float64{
		"primary":       5,
		"primary_link":  5,
		"secondary":     5,
		"tertiary":      5,
		"unclassified":  5,
		"residential":   5,
		"living_street": 5,
		"service":       5,
		"pedestrian":    5,
		"footway":       5,
		"path":          4.5,
		"steps":         2,
		"track":         4.5,
		"cycleway":      5,
	},
	IgnoreOneway: true,
	Deny: map[string][]string{
		"access": {"no", "private"},
		"foot":   {"no"},
	},
}

// ProfileByName returns the named built-in profile.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "car", "":
		return Car, nil
	case "foot":
		return Foot, nil
	}
	return Profile{}, fmt.Errorf("unknown profile %q", name)
}

// speedFor returns the speed in m/s for a way, or 0 if the way is not
// traversable under the profile.
func (p Profile) speedFor(tags osm.Tags) float64 {
	kmh, ok := p.Speeds[tags.Find("highway")]
	if !ok {
		return 0
	}
	for key, values := range p.Deny {
		v := tags.Find(key)
		for _, deny := range values {
			if v == deny {
				return 0
			}
		}
	}
	if maxspeed, err := strconv.ParseFloat(tags.Find("maxspeed"), 64); err == nil && maxspeed > 0 && maxspeed < kmh {
		kmh = maxspeed
	}
	return kmh / 3.6
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent, skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Speed    float64
	Forward  bool
	Backward bool
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	Profile Profile      // zero value means Car
	BBox    BBox         // if non-zero, filter edges to this bounding box
	Logger  *slog.Logger // nil means slog.Default()
}

// Parse reads an OSM PBF file and returns directed street edges.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opt ParseOptions) (*ParseResult, error) {
	if opt.Profile.Speeds == nil {
		opt.Profile = Car
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || len(w.Nodes) < 2 {
			continue
		}

		speed := opt.Profile.speedFor(w.Tags)
		if speed <= 0 {
			continue
		}

		fwd, bwd := true, true
		if !opt.Profile.IgnoreOneway {
			fwd, bwd = directionFlags(w.Tags)
		}
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, wayInfo{NodeIDs: nodeIDs, Speed: speed, Forward: fwd, Backward: bwd})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	logger.Info("osm pass 1 complete", "profile", opt.Profile.Name, "ways", len(ways), "referenced_nodes", len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	logger.Info("osm pass 2 complete", "coordinates", len(nodeLat))

	edges, skipped, filtered := buildEdges(ways, nodeLat, nodeLon, opt.BBox, useBBox)
	if skipped > 0 {
		logger.Warn("skipped edges with missing node coordinates", "edges", skipped)
	}
	if filtered > 0 {
		logger.Info("filtered edges outside bounding box", "edges", filtered)
	}
	logger.Info("built street edges", "edges", len(edges))

	return &ParseResult{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
	}, nil
}

// buildEdges splits ways into directed node-to-node edges.
func buildEdges(ways []wayInfo, nodeLat, nodeLon map[osm.NodeID]float64, bbox BBox, useBBox bool) (edges []RawEdge, skipped, filtered int) {
	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]

			if !fromOk || !toOk {
				skipped++
				continue
			}

			// Bounding box filter: skip edges with any endpoint outside.
			if useBBox && (!bbox.Contains(fromLat, fromLon) || !bbox.Contains(toLat, toLon)) {
				filtered++
				continue
			}

			length := geo.Haversine(fromLat, fromLon, toLat, toLon)
			if length < 0.001 {
				length = 0.001 // avoid zero-weight edges
			}

			if w.Forward {
				edges = append(edges, RawEdge{FromNodeID: fromID, ToNodeID: toID, Length: length, Speed: w.Speed})
			}
			if w.Backward {
				edges = append(edges, RawEdge{FromNodeID: toID, ToNodeID: fromID, Length: length, Speed: w.Speed})
			}
		}
	}
	return edges, skipped, filtered
}
