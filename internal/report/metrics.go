// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names.
const (
	MetricRunsTotal           = "paper_picker_runs_total"
	MetricStageCandidates     = "paper_picker_stage_candidates"
	MetricStageDroppedTotal   = "paper_picker_stage_dropped_total"
	MetricScore               = "paper_picker_score"
	MetricSelectedPerKeyword  = "paper_picker_selected_per_keyword"
	MetricDegradedLookupTotal = "paper_picker_degraded_lookups_total"
	MetricRunDuration         = "paper_picker_run_duration_seconds"
)

// Run status labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics contains Prometheus metrics for selection runs. All operations
// are safe for concurrent use.
type Metrics struct {
	runsTotal       *prometheus.CounterVec
	stageCandidates *prometheus.GaugeVec
	stageDropped    *prometheus.CounterVec
	scores          *prometheus.HistogramVec
	selected        *prometheus.GaugeVec
	degraded        prometheus.Counter
	runDuration     prometheus.Histogram
}

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRunsTotal,
				Help: "Total number of selection runs by status",
			},
			[]string{"status"},
		),
		stageCandidates: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricStageCandidates,
				Help: "Candidates leaving each pipeline stage in the last run",
			},
			[]string{"stage"},
		),
		stageDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricStageDroppedTotal,
				Help: "Total number of candidates dropped by each pipeline stage",
			},
			[]string{"stage"},
		),
		scores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricScore,
				Help:    "Distribution of scores of selected papers by score type",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"score"},
		),
		selected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricSelectedPerKeyword,
				Help: "Papers selected per keyword bucket in the last run",
			},
			[]string{"keyword"},
		),
		degraded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricDegradedLookupTotal,
				Help: "Total number of store lookups that failed open",
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRunDuration,
				Help:    "Histogram of selection run duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),
	}
}

// Register registers all metrics with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.stageCandidates,
		m.stageDropped,
		m.scores,
		m.selected,
		m.degraded,
		m.runDuration,
	}
}

// IncRuns counts a finished run.
func (m *Metrics) IncRuns(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

// ObserveRunDuration records a run duration sample.
func (m *Metrics) ObserveRunDuration(seconds float64) {
	m.runDuration.Observe(seconds)
}

// Observe publishes the statistics of a finished run. Selected-paper
// scores are passed separately since Stats only keeps their summaries.
func (m *Metrics) Observe(s *Stats, scores map[string][]float64) {
	for _, st := range s.Stages {
		m.stageCandidates.WithLabelValues(st.Name).Set(float64(st.Out))
		if d := st.Dropped(); d > 0 {
			m.stageDropped.WithLabelValues(st.Name).Add(float64(d))
		}
	}
	for name, values := range scores {
		h := m.scores.WithLabelValues(name)
		for _, v := range values {
			h.Observe(v)
		}
	}
	m.selected.Reset()
	for kw, n := range s.Buckets {
		m.selected.WithLabelValues(kw).Set(float64(n))
	}
	m.degraded.Add(float64(len(s.Degraded)))
}

// MetricsHandler creates an HTTP handler for the Prometheus metrics endpoint.
// It uses the provided registry to gather metrics.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
