// Package metrics records per-run counters in a private Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/telhawk-systems/proxylog/internal/accesslog"
)

// Metrics holds the collectors for one analysis run.
type Metrics struct {
	registry *prometheus.Registry

	SourcesTotal         prometheus.Counter
	LinesTotal           prometheus.Counter
	BadLinesTotal        prometheus.Counter
	DroppedRecordsTotal  prometheus.Counter
	Records              prometheus.Gauge
	ChunkedResponses     prometheus.Gauge
	ParseDuration        prometheus.Histogram
	MetricsComputedTotal *prometheus.CounterVec
	MetricErrorsTotal    *prometheus.CounterVec
	LastRunTimestamp     prometheus.Gauge
}

// New registers a fresh set of collectors. Every run gets its own registry so
// nothing leaks between runs.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SourcesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "proxylog_sources_total",
			Help: "Total number of input sources read",
		}),
		LinesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "proxylog_lines_total",
			Help: "Total number of non-blank input lines",
		}),
		BadLinesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "proxylog_bad_lines_total",
			Help: "Total number of lines skipped for a wrong field count",
		}),
		DroppedRecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "proxylog_dropped_records_total",
			Help: "Total number of records dropped for unparseable numeric values",
		}),
		Records: factory.NewGauge(prometheus.GaugeOpts{
			Name: "proxylog_records",
			Help: "Number of cleaned records analyzed",
		}),
		ChunkedResponses: factory.NewGauge(prometheus.GaugeOpts{
			Name: "proxylog_chunked_responses",
			Help: "Number of records with a non-positive response size",
		}),
		ParseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "proxylog_parse_duration_seconds",
			Help:    "Duration of parsing all input sources in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		MetricsComputedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proxylog_metrics_computed_total",
			Help: "Total number of statistics computed",
		}, []string{"metric"}),
		MetricErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proxylog_metric_errors_total",
			Help: "Total number of statistics that failed to compute",
		}, []string{"metric"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "proxylog_last_run_timestamp_seconds",
			Help: "Unix time the last analysis run finished",
		}),
	}
}

// ObserveParse records the outcome of the parsing stage.
func (m *Metrics) ObserveParse(report accesslog.Report, took time.Duration) {
	m.SourcesTotal.Add(float64(report.Sources))
	m.LinesTotal.Add(float64(report.Lines))
	m.BadLinesTotal.Add(float64(report.BadLines))
	m.DroppedRecordsTotal.Add(float64(report.Dropped))
	m.Records.Set(float64(report.Records))
	m.ParseDuration.Observe(took.Seconds())
}

// ObserveMetric records one statistic computation.
func (m *Metrics) ObserveMetric(name string, err error) {
	if err != nil {
		m.MetricErrorsTotal.WithLabelValues(name).Inc()
		return
	}
	m.MetricsComputedTotal.WithLabelValues(name).Inc()
}

// Finish stamps the completion time of the run.
func (m *Metrics) Finish(at time.Time) {
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node exporter textfile collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
