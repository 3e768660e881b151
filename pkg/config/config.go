// Package config loads the YAML configuration shared by the tripch commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	osmparser "github.com/azybler/tripch/pkg/osm"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root of the configuration file.
type Config struct {
	Ingest IngestConfig `yaml:"ingest"`
	Build  BuildConfig  `yaml:"build"`
	Query  QueryConfig  `yaml:"query"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// IngestConfig controls how the base graph is built from OSM data.
type IngestConfig struct {
	Profile string `yaml:"profile"` // car or foot
	// BBox is minLat,minLng,maxLat,maxLng; empty keeps everything.
	BBox             []float64 `yaml:"bbox"`
	LargestComponent bool      `yaml:"largest_component"`
}

// BuildConfig controls contraction.
type BuildConfig struct {
	HopLimit    int `yaml:"hop_limit"`    // 0 selects the builder default, -1 unbounded
	MaxSettled  int `yaml:"max_settled"`  // 0 selects the builder default, -1 unbounded
	MaxContract int `yaml:"max_contract"` // 0 contracts everything
}

// QueryConfig controls the query engine.
type QueryConfig struct {
	MaxSnapMeters float64 `yaml:"max_snap_meters"`
	MaxHops       int     `yaml:"max_hops"`   // per one-sided search; 0 is unbounded
	MaxWeight     float64 `yaml:"max_weight"` // per one-sided search; 0 is unbounded
}

// ServerConfig controls the HTTP front end.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	CORSOrigin     string        `yaml:"cors_origin"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Ingest: IngestConfig{Profile: "car", LargestComponent: true},
		Build:  BuildConfig{HopLimit: 5, MaxSettled: 500},
		Query:  QueryConfig{MaxSnapMeters: 500},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			RequestTimeout: 5 * time.Second,
			MaxConcurrent:  64,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem found.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if _, err := osmparser.ProfileByName(c.Ingest.Profile); err != nil {
		bad("ingest.profile: %v", err)
	}
	if _, err := c.Ingest.Box(); err != nil {
		bad("ingest.bbox: %v", err)
	}
	if c.Build.HopLimit < -1 {
		bad("build.hop_limit must be >= -1, got %d", c.Build.HopLimit)
	}
	if c.Build.MaxSettled < -1 {
		bad("build.max_settled must be >= -1, got %d", c.Build.MaxSettled)
	}
	if c.Build.MaxContract < 0 {
		bad("build.max_contract must be >= 0, got %d", c.Build.MaxContract)
	}
	if c.Query.MaxSnapMeters < 0 || c.Query.MaxHops < 0 || c.Query.MaxWeight < 0 {
		bad("query limits must be >= 0")
	}
	if c.Server.MaxConcurrent <= 0 {
		bad("server.max_concurrent must be > 0, got %d", c.Server.MaxConcurrent)
	}
	if c.Server.RequestTimeout <= 0 {
		bad("server.request_timeout must be > 0")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		bad("log.format must be text or json, got %q", c.Log.Format)
	}
	return errors.Join(errs...)
}

// Box converts BBox to the parser's bounding box. An empty list is the zero box.
func (i IngestConfig) Box() (osmparser.BBox, error) {
	if len(i.BBox) == 0 {
		return osmparser.BBox{}, nil
	}
	if len(i.BBox) != 4 {
		return osmparser.BBox{}, fmt.Errorf("want 4 values minLat,minLng,maxLat,maxLng, got %d", len(i.BBox))
	}
	b := osmparser.BBox{MinLat: i.BBox[0], MinLng: i.BBox[1], MaxLat: i.BBox[2], MaxLng: i.BBox[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return osmparser.BBox{}, fmt.Errorf("min exceeds max in %v", i.BBox)
	}
	return b, nil
}

// NewLogger builds a logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}
