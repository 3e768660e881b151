package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/azybler/tripch/pkg/api"
	"github.com/azybler/tripch/pkg/ch"
	"github.com/azybler/tripch/pkg/config"
	"github.com/azybler/tripch/pkg/graph"
	"github.com/azybler/tripch/pkg/routing"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dir        string
		addr       string
		corsOrigin string
	)
	cmd := &cobra.Command{
		Use:          "server --dir <hierarchy>",
		Short:        "Serve route queries over HTTP from a completed hierarchy",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("cors-origin") {
				cfg.Server.CORSOrigin = corsOrigin
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger(os.Stderr)
			if err != nil {
				return err
			}

			start := time.Now()
			h, err := ch.Load(dir)
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
			logger.Info("ready", "elapsed", time.Since(start).Round(time.Millisecond))

			handlers := api.NewHandlers(engine, api.StatsResponse{
				BuildID:      h.BuildID.String(),
				NumVertices:  h.Up.NumVertices(),
				NumUpEdges:   h.Up.NumEdges(),
				NumDownEdges: h.Down.NumEdges(),
			})

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			srv := api.NewServer(cfg.Server, handlers, reg, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.ListenAndServe(ctx, srv, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML configuration file")
	f.StringVar(&dir, "dir", "hierarchy", "Hierarchy directory written by preprocess")
	f.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	f.StringVar(&corsOrigin, "cors-origin", "", "CORS allowed origin (empty = same-origin)")
	return cmd
}
