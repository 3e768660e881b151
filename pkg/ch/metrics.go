package ch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors updated by a Builder.
type Metrics struct {
	Contracted              prometheus.Counter
	Shortcuts               prometheus.Counter
	Requeues                prometheus.Counter
	Remaining               prometheus.Gauge
	ShortcutsPerContraction prometheus.Histogram
	StepSeconds             prometheus.Histogram
}

// NewMetrics creates the builder collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Contracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tripch",
			Subsystem: "contraction",
			Name:      "vertices_total",
			Help:      "Vertices contracted",
		}),
		Shortcuts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tripch",
			Subsystem: "contraction",
			Name:      "shortcuts_total",
			Help:      "Shortcut edges added",
		}),
		Requeues: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tripch",
			Subsystem: "contraction",
			Name:      "requeues_total",
			Help:      "Queue entries put back after their priority changed",
		}),
		Remaining: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tripch",
			Subsystem: "contraction",
			Name:      "remaining_vertices",
			Help:      "Vertices left in the working graph",
		}),
		ShortcutsPerContraction: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tripch",
			Subsystem: "contraction",
			Name:      "shortcuts_per_vertex",
			Help:      "Shortcuts added by a single contraction",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256},
		}),
		StepSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tripch",
			Subsystem: "contraction",
			Name:      "step_seconds",
			Help:      "Time to select and contract one vertex",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
}
