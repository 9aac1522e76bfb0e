// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const rollbackTimeout = 5 * time.Second

// LoaderConfig holds configuration for the batch loader
type LoaderConfig struct {
	BatchTimeout    time.Duration        // Per-batch deadline (0 = none)
	Faults          FaultInjector        // Optional fault injection, testing only
	StageMetrics    StageMetricsRecorder // Optional per-batch timing sink
	LogStageTimings bool                 // Log per-batch timings at debug level
}

// BatchLoader executes one batch as one transaction on the run's store.
type BatchLoader struct {
	store    Store
	logger   *slog.Logger
	config   *LoaderConfig
	observer stageObserver
}

// NewBatchLoader creates a loader that owns store for the duration of the run.
func NewBatchLoader(store Store, config *LoaderConfig, logger *slog.Logger) *BatchLoader {
	if config == nil {
		config = &LoaderConfig{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchLoader{
		store:  store,
		logger: logger,
		config: config,
		observer: stageObserver{
			recorder: config.StageMetrics,
			logger:   logger,
			logDebug: config.LogStageTimings,
		},
	}
}

// Load inserts every row of b into rel inside a single transaction.
// Either all rows are committed or, after an unconditional rollback, none are.
func (l *BatchLoader) Load(ctx context.Context, rel Relation, b Batch) Outcome {
	start := l.observer.start()
	out := l.load(ctx, rel, b)
	l.observer.observe(ctx, StageTiming{
		Relation: rel.Name,
		Stage:    MetricsStageLoad,
		Pass:     b.Pass,
		Batch:    b.Index,
		Rows:     b.Len(),
		Status:   out.Status,
		Class:    out.Class,
	}, start)
	return out
}

func (l *BatchLoader) load(ctx context.Context, rel Relation, b Batch) Outcome {
	if l.config.Faults != nil && l.config.Faults.ShouldFail(b) {
		return failed(b, fmt.Errorf("%w: %s batch %d: %w", ErrBatchExecution, rel.Name, b.Index, ErrSimulatedFault))
	}
	if err := (RecordSet{Relation: rel.Name, Rows: b.Rows}).checkShape(rel); err != nil {
		return failed(b, fmt.Errorf("%w: %w", ErrBatchExecution, err))
	}

	batchCtx, cancel := l.batchContext(ctx)
	defer cancel()

	tx, err := l.store.Begin(batchCtx)
	if err != nil {
		return failed(b, l.batchError(batchCtx, rel, b, "begin", err))
	}

	stmt := rel.InsertSQL(l.store.Dialect())
	for i, row := range b.Rows {
		if err := tx.Exec(batchCtx, stmt, row...); err != nil {
			l.rollback(ctx, tx, rel, b)
			return failed(b, l.batchError(batchCtx, rel, b, fmt.Sprintf("row %d", i), err))
		}
	}

	if err := tx.Commit(batchCtx); err != nil {
		l.rollback(ctx, tx, rel, b)
		return failed(b, l.batchError(batchCtx, rel, b, "commit", err))
	}
	return committed(b)
}

func (l *BatchLoader) batchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.config.BatchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.config.BatchTimeout)
}

// batchError wraps a driver error, marking batch deadline expiry explicitly so
// that it classifies like any other transient driver failure.
func (l *BatchLoader) batchError(batchCtx context.Context, rel Relation, b Batch, step string, err error) error {
	if ctxErr := batchCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(ctxErr, err)
	}
	return fmt.Errorf("%w: %s batch %d %s: %w", ErrBatchExecution, rel.Name, b.Index, step, err)
}

// rollback always runs, on a context detached from the batch deadline.
func (l *BatchLoader) rollback(ctx context.Context, tx Tx, rel Relation, b Batch) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	err := tx.Rollback(rbCtx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) || errors.Is(err, sql.ErrTxDone) {
		return
	}
	l.logger.Warn("Rollback failed", "relation", rel.Name, "batch", b.Index, "error", err)
}
