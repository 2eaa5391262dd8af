// Package metrics provides Prometheus metrics for imports and irrigation decisions
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Decision outcomes used as the "outcome" label.
const (
	OutcomeIrrigate   = "riego"
	OutcomeNoIrrigate = "no_riego"
	OutcomeError      = "error"
)

// Metrics contains the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	importRows      *prometheus.CounterVec
	importBatches   prometheus.Counter
	importDuration  prometheus.Histogram
	decisions       *prometheus.CounterVec
	modelScoreTime  prometheus.Histogram
	thresholdLoaded prometheus.Gauge
}

// New creates the collectors and registers them on registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riego_import_rows_total",
				Help: "Rows seen by the CSV importer",
			},
			[]string{"result"}, // result: imported, skipped
		),
		importBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riego_import_batches_total",
			Help: "Reading batches committed by the CSV importer",
		}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "riego_import_duration_seconds",
			Help: "Wall time of a CSV import",
			// 100ms .. ~7min
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riego_decisions_total",
				Help: "Irrigation recommendations produced",
			},
			[]string{"outcome"},
		),
		modelScoreTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "riego_model_score_seconds",
			Help: "Time spent scoring one feature vector",
			// 1ms .. ~4s
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
		}),
		thresholdLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riego_decision_threshold",
			Help: "Decision threshold currently in effect",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.importRows.Describe(ch)
	m.importBatches.Describe(ch)
	m.importDuration.Describe(ch)
	m.decisions.Describe(ch)
	m.modelScoreTime.Describe(ch)
	m.thresholdLoaded.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.importRows.Collect(ch)
	m.importBatches.Collect(ch)
	m.importDuration.Collect(ch)
	m.decisions.Collect(ch)
	m.modelScoreTime.Collect(ch)
	m.thresholdLoaded.Collect(ch)
}

func (m *Metrics) RecordImportRows(imported, skipped int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("imported").Add(float64(imported))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) RecordImportBatch() {
	if m == nil {
		return
	}
	m.importBatches.Inc()
}

func (m *Metrics) RecordImportDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.importDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordModelScore(d time.Duration) {
	if m == nil {
		return
	}
	m.modelScoreTime.Observe(d.Seconds())
}

func (m *Metrics) SetThreshold(v float64) {
	if m == nil {
		return
	}
	m.thresholdLoaded.Set(v)
}
