// Package observability provides Prometheus metrics for a scoring run.
//
// A run is a one-shot batch job, so metrics are collected on a private registry
// and, when configured, written once to a node_exporter textfile at the end.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a run.
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion metrics
	RecordsProcessed prometheus.Counter
	PayloadDecodes   *prometheus.CounterVec

	// Scoring metrics
	WalletsScored     prometheus.Gauge
	ScoreDistribution prometheus.Histogram

	// Pipeline metrics
	StageDuration        *prometheus.HistogramVec
	PipelineRunsTotal    *prometheus.CounterVec
	LastSuccessfulRunSec prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "credscore"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RecordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_processed_total",
			Help:      "Total number of raw transaction records normalized",
		}),
		PayloadDecodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "payload_decodes_total",
			Help:      "Action data payloads decoded, by decoding stage",
		}, []string{"method"}),

		WalletsScored: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "wallets_scored",
			Help:      "Number of wallets scored in the last run",
		}),
		ScoreDistribution: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "credit_score",
			Help:      "Distribution of wallet credit scores",
			Buckets:   prometheus.LinearBuckets(100, 100, 10),
		}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"stage"}),
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by result",
		}, []string{"result"}),
		LastSuccessfulRunSec: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records the outcome of a pipeline run.
func (m *Metrics) RecordRun(err error, finishedAt time.Time) {
	if err != nil {
		m.PipelineRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.PipelineRunsTotal.WithLabelValues("success").Inc()
	m.LastSuccessfulRunSec.Set(float64(finishedAt.Unix()))
}

// WriteTextfile writes the current metric values in the text exposition format,
// atomically, for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
