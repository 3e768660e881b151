package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/azybler/tripch/pkg/ch"
	"github.com/azybler/tripch/pkg/config"
	"github.com/azybler/tripch/pkg/graph"
	"github.com/azybler/tripch/pkg/routing"
)

type options struct {
	configPath string
	dir        string
	from, to   string
	fromLatLng []float64
	toLatLng   []float64
	depart     string
	unpack     bool
	asJSON     bool
}

type output struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Meeting  string   `json:"meeting"`
	Depart   int64    `json:"depart"`
	Seconds  float64  `json:"seconds"`
	Meters   float64  `json:"meters,omitempty"`
	Vertices []string `json:"vertices"`
	Legs     int      `json:"legs,omitempty"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opt options
	cmd := &cobra.Command{
		Use:   "query --dir <hierarchy> (--from <label> --to <label> | --from-latlng lat,lng --to-latlng lat,lng)",
		Short: "Answer a single shortest-path query from a completed hierarchy",
		Example: `  query --dir hierarchy --from n123 --to n456 --depart 2026-01-02T08:00:00Z
  query --dir hierarchy --from-latlng 1.30,103.85 --to-latlng 1.35,103.90`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opt, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opt.configPath, "config", "", "YAML configuration file")
	f.StringVar(&opt.dir, "dir", "hierarchy", "Hierarchy directory written by preprocess")
	f.StringVar(&opt.from, "from", "", "Source vertex label")
	f.StringVar(&opt.to, "to", "", "Target vertex label")
	f.Float64SliceVar(&opt.fromLatLng, "from-latlng", nil, "Source coordinate: lat,lng")
	f.Float64SliceVar(&opt.toLatLng, "to-latlng", nil, "Target coordinate: lat,lng")
	f.StringVar(&opt.depart, "depart", "", "Departure time, RFC 3339 (default now)")
	f.BoolVar(&opt.unpack, "unpack", false, "Expand shortcuts to report street legs and meters")
	f.BoolVar(&opt.asJSON, "json", false, "Print the result as JSON")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsRequiredTogether("from-latlng", "to-latlng")
	cmd.MarkFlagsMutuallyExclusive("from", "from-latlng")
	cmd.MarkFlagsOneRequired("from", "from-latlng")
	return cmd
}

func run(ctx context.Context, opt options, w io.Writer) error {
	cfg := config.Default()
	if opt.configPath != "" {
		var err error
		if cfg, err = config.Load(opt.configPath); err != nil {
			return err
		}
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	depart := time.Now()
	if opt.depart != "" {
		if depart, err = time.Parse(time.RFC3339, opt.depart); err != nil {
			return fmt.Errorf("--depart: %w", err)
		}
	}

	h, err := ch.Load(opt.dir)
	if err != nil {
		return fmt.Errorf("load hierarchy: %w", err)
	}
	engine, err := routing.NewEngine(h, routing.EngineOptions{
		Limits:        graph.Limits{MaxHops: cfg.Query.MaxHops, MaxWeight: cfg.Query.MaxWeight},
		MaxSnapMeters: cfg.Query.MaxSnapMeters,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	var out output
	var path *routing.Path
	if opt.fromLatLng != nil {
		start, err := latLng(opt.fromLatLng)
		if err != nil {
			return fmt.Errorf("--from-latlng: %w", err)
		}
		end, err := latLng(opt.toLatLng)
		if err != nil {
			return fmt.Errorf("--to-latlng: %w", err)
		}
		res, err := engine.RouteAt(ctx, start, end, depart)
		if err != nil {
			return err
		}
		path = res.Path
		out.Meters = res.DistanceMeters
		out.Legs = res.Legs
	} else {
		path, err = engine.Query(ctx, opt.from, opt.to, graph.State{Time: depart.Unix()})
		if err != nil {
			return err
		}
	}
	out.Source, out.Target, out.Meeting = path.Source, path.Target, path.Meeting
	out.Depart = path.Depart
	out.Seconds = path.Weight
	out.Vertices = path.Vertices()

	if opt.unpack {
		legs, err := routing.Unpack(path.Payloads)
		if err != nil {
			return err
		}
		out.Legs = len(legs)
		out.Meters = 0
		for _, p := range legs {
			if s, ok := p.(graph.Street); ok {
				out.Meters += s.Length
			}
		}
	}

	if opt.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Fprintf(w, "%s -> %s via %s\n", out.Source, out.Target, out.Meeting)
	fmt.Fprintf(w, "  travel time: %.1f s\n", out.Seconds)
	if out.Legs > 0 {
		fmt.Fprintf(w, "  street legs: %d (%.0f m)\n", out.Legs, out.Meters)
	}
	fmt.Fprintf(w, "  hierarchy vertices: %v\n", out.Vertices)
	return nil
}

func latLng(v []float64) (routing.LatLng, error) {
	if len(v) != 2 {
		return routing.LatLng{}, errors.New("want lat,lng")
	}
	return routing.LatLng{Lat: v[0], Lng: v[1]}, nil
}
