package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Removal paths label values for panes_removed_total.
const (
	PathOwner = "owner"
	PathLazy  = "lazy"
	PathSweep = "sweep"
)

// PaneMetrics holds the lifecycle counters for panes. A nil *PaneMetrics
// is valid and records nothing.
type PaneMetrics struct {
	uploaded          prometheus.Counter
	removed           *prometheus.CounterVec
	incrementFailures prometheus.Counter
	sweepRuns         *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
}

// NewPaneMetrics creates the pane metrics and registers them with reg.
func NewPaneMetrics(reg prometheus.Registerer) (*PaneMetrics, error) {
	m := &PaneMetrics{
		uploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "panes_uploaded_total",
			Help: "Total number of panes created.",
		}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "panes_removed_total",
			Help: "Total number of panes removed, by removal path.",
		}, []string{"path"}),
		incrementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "panes_view_increment_failures_total",
			Help: "Total number of view count increments that failed.",
		}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "panes_sweep_runs_total",
			Help: "Total number of expiration sweeps, by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "panes_sweep_duration_seconds",
			Help:    "Duration of expiration sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.uploaded, m.removed, m.incrementFailures, m.sweepRuns, m.sweepDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PaneMetrics) Uploaded() {
	if m == nil {
		return
	}
	m.uploaded.Inc()
}

func (m *PaneMetrics) Removed(path string) {
	if m == nil {
		return
	}
	m.removed.WithLabelValues(path).Inc()
}

func (m *PaneMetrics) IncrementFailed() {
	if m == nil {
		return
	}
	m.incrementFailures.Inc()
}

// SweepFinished records one sweep run; failed marks a run that stopped on a store error.
func (m *PaneMetrics) SweepFinished(elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.sweepRuns.WithLabelValues(outcome).Inc()
	m.sweepDuration.Observe(elapsed.Seconds())
}
