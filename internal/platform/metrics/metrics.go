// Package metrics owns the prometheus registry and the run counters
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sift"

// Line outcomes
const (
	LineWritten  = "written"
	LineFiltered = "filtered"
	LineBad      = "bad"
)

// File outcomes
const (
	FileDone   = "done"
	FileFailed = "failed"
)

// Metrics holds every collector a run updates
// A nil *Metrics is valid and records nothing
type Metrics struct {
	reg *prometheus.Registry

	Lines        *prometheus.CounterVec
	Files        *prometheus.CounterVec
	CategoryHits *prometheus.CounterVec
	BytesRead    prometheus.Counter
	SinkRows     *prometheus.CounterVec
	SinkErrors   *prometheus.CounterVec
	FileProgress prometheus.Gauge
}

// New builds a private registry with the run collectors plus go/process runtime collectors
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),

		Lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lines_total",
				Help:      "Input lines by outcome (written, filtered, bad)",
			},
			[]string{"status"},
		),

		Files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Input files by outcome (done, failed)",
			},
			[]string{"status"},
		),

		CategoryHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "category_hits_total",
				Help:      "Written records flagged per category",
			},
			[]string{"category"},
		),

		BytesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_read",
				Help:      "Compressed bytes consumed from input files",
			},
		),

		SinkRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sink",
				Name:      "rows_total",
				Help:      "Rows accepted per sink",
			},
			[]string{"sink"},
		),

		SinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sink",
				Name:      "errors_total",
				Help:      "Sink write or flush failures",
			},
			[]string{"sink"},
		),

		FileProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "file_progress_ratio",
				Help:      "Fraction of the current input file consumed (0..1)",
			},
		),
	}

	m.reg.MustRegister(
		m.Lines, m.Files, m.CategoryHits, m.BytesRead, m.SinkRows, m.SinkErrors, m.FileProgress,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying prometheus registry
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Line counts one line outcome
func (m *Metrics) Line(status string) {
	if m == nil {
		return
	}
	m.Lines.WithLabelValues(status).Inc()
}

// File counts one file outcome
func (m *Metrics) File(status string) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(status).Inc()
}

// Hits adds one hit for every set flag; names and flags are parallel
func (m *Metrics) Hits(names []string, flags []bool) {
	if m == nil {
		return
	}
	for i, hit := range flags {
		if hit && i < len(names) {
			m.CategoryHits.WithLabelValues(names[i]).Inc()
		}
	}
}

// Bytes adds n compressed bytes
func (m *Metrics) Bytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesRead.Add(float64(n))
}

// Progress sets the current file ratio, clamped to 0..1
func (m *Metrics) Progress(ratio float64) {
	if m == nil {
		return
	}
	m.FileProgress.Set(max(0, min(1, ratio)))
}

// SinkRow counts rows accepted by a sink
func (m *Metrics) SinkRow(sink string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SinkRows.WithLabelValues(sink).Add(float64(n))
}

// SinkError counts one sink failure
func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(sink).Inc()
}
