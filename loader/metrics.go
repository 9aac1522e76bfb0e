// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"log/slog"
	"time"
)

const (
	MetricsStageLoad  = "load"
	MetricsStageRetry = "retry_wait"
)

// StageTiming describes one timed step of a run: a batch load or the retry wait.
type StageTiming struct {
	Relation string
	Stage    string
	Pass     Pass
	Batch    int
	Rows     int
	Duration time.Duration
	Status   Status
	Class    ErrorClass
}

type StageMetricsRecorder interface {
	ObserveStage(ctx context.Context, timing StageTiming)
}

type StageMetricsRecorderFunc func(ctx context.Context, timing StageTiming)

func (f StageMetricsRecorderFunc) ObserveStage(ctx context.Context, timing StageTiming) {
	f(ctx, timing)
}

// stageObserver fans stage timings out to an optional recorder and the debug log.
type stageObserver struct {
	recorder StageMetricsRecorder
	logger   *slog.Logger
	logDebug bool
}

func (o stageObserver) enabled() bool {
	return o.recorder != nil || o.logDebug
}

func (o stageObserver) start() time.Time {
	if !o.enabled() {
		return time.Time{}
	}
	return time.Now()
}

func (o stageObserver) observe(ctx context.Context, timing StageTiming, start time.Time) {
	if start.IsZero() {
		return
	}
	timing.Duration = time.Since(start)

	if o.recorder != nil {
		o.recorder.ObserveStage(ctx, timing)
	}
	if o.logDebug && o.logger != nil {
		o.logger.Debug("Stage timing",
			"relation", timing.Relation,
			"stage", timing.Stage,
			"pass", timing.Pass.String(),
			"batch", timing.Batch,
			"rows", timing.Rows,
			"duration", timing.Duration,
			"status", timing.Status.String(),
		)
	}
}
