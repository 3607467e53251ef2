package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ezie_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for one ETL run.
type Metrics struct {
	ArchivesExtracted  prometheus.Counter
	HourlyFilesCopied  prometheus.Counter
	HourlyFilesSkipped prometheus.Counter
	FilesMerged        prometheus.Counter
	FilesRejected      prometheus.Counter
	RecordsMerged      prometheus.Counter
	PipelineRunning    prometheus.Gauge
	LastRunSuccess     prometheus.Gauge
	LastRunTimestamp   prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage={expand,merge,export}

	registry *prometheus.Registry
}

// NewMetrics creates all pipeline metrics on a private registry, so repeated
// calls (one per test) never collide.
func NewMetrics() *Metrics {
	m := &Metrics{
		ArchivesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_extracted_total",
			Help:      "Total zip archives extracted.",
		}),
		HourlyFilesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hourly_files_copied_total",
			Help:      "Total hourly files copied into the merged directory.",
		}),
		HourlyFilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hourly_files_skipped_total",
			Help:      "Hourly files not copied because the destination already existed.",
		}),
		FilesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_merged_total",
			Help:      "Hourly files parsed into the merged table.",
		}),
		FilesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_rejected_total",
			Help:      "Hourly files that failed to parse.",
		}),
		RecordsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_merged_total",
			Help:      "Rows in the merged table.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run completed without error, 0 otherwise.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ArchivesExtracted,
		m.HourlyFilesCopied,
		m.HourlyFilesSkipped,
		m.FilesMerged,
		m.FilesRejected,
		m.RecordsMerged,
		m.PipelineRunning,
		m.LastRunSuccess,
		m.LastRunTimestamp,
		m.StageDuration,
	)

	return m
}

// Gatherer exposes the registry backing m.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the Prometheus text format for the
// node_exporter textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
