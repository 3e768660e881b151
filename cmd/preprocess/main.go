package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/azybler/tripch/pkg/ch"
	"github.com/azybler/tripch/pkg/config"
	"github.com/azybler/tripch/pkg/graph"
	osmparser "github.com/azybler/tripch/pkg/osm"
)

// Named bounding boxes, minLat,minLng,maxLat,maxLng.
var presets = map[string][]float64{
	"singapore": {1.15, 103.6, 1.48, 104.1},
	"kl":        {2.75, 101.2, 3.5, 102.0},
}

type options struct {
	configPath  string
	input       string
	output      string
	resume      bool
	profile     string
	bbox        []float64
	preset      string
	maxContract int
	hopLimit    int
	maxSettled  int
	metricsFile string
	logLevel    string
	logFormat   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newCommand(new(options))
}

func newCommand(opt *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess --input <file.osm.pbf> --output <dir>",
		Short: "Build a contraction hierarchy from OpenStreetMap data",
		Long: `preprocess parses an OSM PBF extract into a street graph and contracts it
into a hierarchy directory (up, down, remainder, order and queue artifacts).

With --max-contract the build stops after that many vertices and leaves a
remainder; run again with --resume to continue. Interrupting a build saves
the progress made so far.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *opt)
			if err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger(os.Stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, *opt, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opt.configPath, "config", "", "YAML configuration file")
	f.StringVar(&opt.input, "input", "", "Path to .osm.pbf file")
	f.StringVar(&opt.output, "output", "hierarchy", "Hierarchy output directory")
	f.BoolVar(&opt.resume, "resume", false, "Continue the partial build in --output instead of parsing --input")
	f.StringVar(&opt.profile, "profile", "", "Travel profile: car or foot")
	f.Float64SliceVar(&opt.bbox, "bbox", nil, "Bounding box filter: minLat,minLng,maxLat,maxLng")
	f.StringVar(&opt.preset, "preset", "", "Named bounding box: singapore or kl")
	f.IntVar(&opt.maxContract, "max-contract", 0, "Vertices to contract in this run (0 = all)")
	f.IntVar(&opt.hopLimit, "hop-limit", 0, "Witness search hop limit (-1 = unbounded)")
	f.IntVar(&opt.maxSettled, "max-settled", 0, "Witness search settled-vertex limit (-1 = unbounded)")
	f.StringVar(&opt.metricsFile, "metrics-file", "", "Write build metrics in Prometheus text format to this file")
	f.StringVar(&opt.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opt.logFormat, "log-format", "", "Log format: text or json")
	cmd.MarkFlagsMutuallyExclusive("bbox", "preset")
	cmd.MarkFlagsMutuallyExclusive("input", "resume")
	return cmd
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(cmd *cobra.Command, opt options) (config.Config, error) {
	cfg := config.Default()
	if opt.configPath != "" {
		var err error
		if cfg, err = config.Load(opt.configPath); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	if f.Changed("profile") {
		cfg.Ingest.Profile = opt.profile
	}
	if f.Changed("bbox") {
		cfg.Ingest.BBox = opt.bbox
	}
	if f.Changed("preset") {
		box, ok := presets[opt.preset]
		if !ok {
			return cfg, fmt.Errorf("unknown preset %q", opt.preset)
		}
		cfg.Ingest.BBox = box
	}
	if f.Changed("max-contract") {
		cfg.Build.MaxContract = opt.maxContract
	}
	if f.Changed("hop-limit") {
		cfg.Build.HopLimit = opt.hopLimit
	}
	if f.Changed("max-settled") {
		cfg.Build.MaxSettled = opt.maxSettled
	}
	if f.Changed("log-level") {
		cfg.Log.Level = opt.logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = opt.logFormat
	}
	if !opt.resume && opt.input == "" {
		return cfg, errors.New("--input is required unless --resume is set")
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config, opt options, logger *slog.Logger) error {
	start := time.Now()
	reg := prometheus.NewRegistry()
	buildOpt := ch.Options{
		HopLimit:    cfg.Build.HopLimit,
		MaxSettled:  cfg.Build.MaxSettled,
		MaxContract: cfg.Build.MaxContract,
		Logger:      logger,
		Metrics:     ch.NewMetrics(reg),
	}

	var (
		b   *ch.Builder
		err error
	)
	if opt.resume {
		h, err := ch.Load(opt.output)
		if err != nil {
			return fmt.Errorf("load partial hierarchy: %w", err)
		}
		if h.Complete() {
			logger.Info("hierarchy already complete", "dir", opt.output, "build_id", h.BuildID)
			return nil
		}
		if b, err = ch.Resume(h, buildOpt); err != nil {
			return err
		}
	} else {
		g, err := baseGraph(ctx, cfg.Ingest, opt.input, logger)
		if err != nil {
			return err
		}
		if b, err = ch.NewBuilder(g, buildOpt); err != nil {
			return err
		}
	}

	runErr := b.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		// Invariant violations leave nothing worth saving.
		return fmt.Errorf("contract: %w", runErr)
	}

	h := b.Hierarchy()
	if err = h.Save(opt.output); err != nil {
		return fmt.Errorf("save hierarchy: %w", err)
	}
	if opt.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opt.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	logger.Info("hierarchy saved",
		"dir", opt.output, "build_id", h.BuildID, "complete", h.Complete(),
		"contracted", len(h.Order), "remaining", h.Remainder.NumVertices(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	if runErr != nil {
		logger.Warn("build interrupted; continue with --resume", "dir", opt.output)
		return runErr
	}
	return nil
}

// baseGraph parses the OSM extract and keeps its largest component.
func baseGraph(ctx context.Context, ingest config.IngestConfig, input string, logger *slog.Logger) (*graph.Graph, error) {
	profile, err := osmparser.ProfileByName(ingest.Profile)
	if err != nil {
		return nil, err
	}
	box, err := ingest.Box()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	parsed, err := osmparser.Parse(ctx, f, osmparser.ParseOptions{Profile: profile, BBox: box, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("parse osm: %w", err)
	}

	g := graph.Build(parsed)
	logger.Info("graph built", "vertices", g.NumVertices(), "edges", g.NumEdges())

	if ingest.LargestComponent && g.NumVertices() > 0 {
		keep := graph.LargestComponent(g)
		logger.Info("largest component",
			"vertices", len(keep), "share", float64(len(keep))/float64(g.NumVertices()))
		g = graph.FilterToComponent(g, keep)
	}
	return g, nil
}
