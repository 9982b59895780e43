package pipeline

import (
	"time"

	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "talentmetrics"

// Instruments holds the Prometheus collectors updated by runs.
type Instruments struct {
	rowsLoaded  *prometheus.CounterVec
	rowsDropped *prometheus.CounterVec
	rowsStored  *prometheus.CounterVec
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewInstruments registers the run collectors with reg.
// A nil reg uses the default registerer.
func NewInstruments(reg prometheus.Registerer) *Instruments {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Instruments{
		rowsLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows read from source files.",
		}, []string{"entity"}),
		rowsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed by validation.",
		}, []string{"entity", "stage"}),
		rowsStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_stored_total",
			Help:      "Rows written to the store.",
		}, []string{"entity"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by result.",
		}, []string{"result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of pipeline runs.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
}

func (m *Instruments) loaded(reports []core.LoadReport) {
	for _, r := range reports {
		if r.Status == core.LoadOK {
			m.rowsLoaded.WithLabelValues(r.Entity).Add(float64(r.Rows))
		}
	}
}

func (m *Instruments) validated(reports []core.ValidationReport) {
	for _, r := range reports {
		for _, s := range r.Stages {
			if n := s.Dropped(); n > 0 {
				m.rowsDropped.WithLabelValues(r.Entity, string(s.Stage)).Add(float64(n))
			}
		}
	}
}

func (m *Instruments) stored(entity string, rows int) {
	m.rowsStored.WithLabelValues(entity).Add(float64(rows))
}

func (m *Instruments) finished(result string, d time.Duration) {
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}
