// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports load progress as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/L2AsHdz/covid-19-data-analysis/loader"
)

const (
	Namespace = "covidload"

	MetricBatches       = "batches_total"
	MetricRowsCommitted = "rows_committed_total"
	MetricBatchDuration = "batch_duration_seconds"
	MetricRetryWait     = "retry_wait_seconds"
)

// Recorder turns loader stage timings into Prometheus metrics. Each Recorder
// owns its registry so that several can coexist in one process.
type Recorder struct {
	registry      *prometheus.Registry
	batches       *prometheus.CounterVec
	rowsCommitted *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	retryWait     prometheus.Histogram
}

var _ loader.StageMetricsRecorder = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricBatches,
				Help:      "Batches attempted, by relation, pass and outcome.",
			},
			[]string{"relation", "pass", "outcome"},
		),
		rowsCommitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricRowsCommitted,
				Help:      "Rows committed, by relation.",
			},
			[]string{"relation"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      MetricBatchDuration,
				Help:      "Time to load one batch, including rollback.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"relation", "pass"},
		),
		retryWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      MetricRetryWait,
				Help:      "Backoff waited before the retry pass.",
				Buckets:   []float64{0.1, 1, 5, 15, 60},
			},
		),
	}
	r.registry.MustRegister(r.batches, r.rowsCommitted, r.batchDuration, r.retryWait)
	return r
}

// ObserveStage implements loader.StageMetricsRecorder.
func (r *Recorder) ObserveStage(_ context.Context, timing loader.StageTiming) {
	switch timing.Stage {
	case loader.MetricsStageLoad:
		pass := timing.Pass.String()
		r.batches.WithLabelValues(timing.Relation, pass, timing.Status.String()).Inc()
		r.batchDuration.WithLabelValues(timing.Relation, pass).Observe(timing.Duration.Seconds())
		if timing.Status == loader.Committed {
			r.rowsCommitted.WithLabelValues(timing.Relation).Add(float64(timing.Rows))
		}
	case loader.MetricsStageRetry:
		r.retryWait.Observe(timing.Duration.Seconds())
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
