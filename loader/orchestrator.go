// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultBatchSize is the number of rows per batch when none is configured.
const DefaultBatchSize = 100

// OrchestratorConfig holds configuration for a load run
type OrchestratorConfig struct {
	BatchSize int          // Rows per batch, must be positive
	Relations []Relation   // Target relations; nil means DefaultRelations()
	Retry     RetryPolicy  // Retry pass policy
	Loader    LoaderConfig // Batch loader settings
}

// Orchestrator sequences every relation through planning, loading and the
// single retry pass. Relations are independent units of work: a failing relation
// never rolls back an earlier one.
type Orchestrator struct {
	store  Store
	config *OrchestratorConfig
	logger *slog.Logger
	order  []Relation
}

// NewOrchestrator validates config and resolves the relation processing order.
func NewOrchestrator(store Store, config *OrchestratorConfig, logger *slog.Logger) (*Orchestrator, error) {
	if config == nil {
		config = &OrchestratorConfig{BatchSize: DefaultBatchSize}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfiguration, config.BatchSize)
	}
	relations := config.Relations
	if relations == nil {
		relations = DefaultRelations()
	}
	order, err := ResolveOrder(relations)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{store: store, config: config, logger: logger, order: order}, nil
}

// Order returns the relations in processing order.
func (o *Orchestrator) Order() []Relation {
	return append([]Relation(nil), o.order...)
}

// Run loads sets into their relations. Batch failures never abort the run; they
// are retried once and then counted. The returned error is non-nil only for
// invalid input or context cancellation, in which case the report covers the
// batches attempted so far.
func (o *Orchestrator) Run(ctx context.Context, sets []RecordSet) (*Report, error) {
	started := time.Now()
	report := newReport(o.order)

	byRelation, err := o.validate(sets)
	if err != nil {
		return report, err
	}

	logger := o.logger.With("run_id", report.RunID)
	loader := NewBatchLoader(o.store, &o.config.Loader, logger)
	coordinator := NewRetryCoordinator(loader, o.config.BatchSize, o.config.Retry, logger)

	for _, rel := range o.order {
		rs := byRelation[rel.Name]
		batches, err := Plan(rs, o.config.BatchSize)
		if err != nil {
			return report, err
		}

		rr := report.relation(rel.Name)
		rr.Rows = rs.Len()
		rr.Planned = len(batches)
		logger.Info("Loading relation",
			"relation", rel.Name, "table", rel.Table, "rows", rs.Len(), "batches", len(batches))

		for _, b := range batches {
			if err := ctx.Err(); err != nil {
				report.Elapsed = time.Since(started)
				return report, err
			}
			out := loader.Load(ctx, rel, b)
			rr.add(out)
			if out.Status == Failed {
				queued := coordinator.Record(out)
				logger.Warn("Batch failed",
					"relation", rel.Name, "batch", b.Index, "rows", b.Len(),
					"class", out.Class.String(), "queued", queued, "error", out.Err)
			}
		}

		logger.Info("Relation loaded",
			"relation", rel.Name, "committed", rr.Committed, "failed", rr.Failed)
	}

	if err := coordinator.Run(ctx, o.order, report); err != nil {
		report.Elapsed = time.Since(started)
		return report, err
	}

	report.Elapsed = time.Since(started)
	report.Log(logger)
	return report, nil
}

// validate checks every record set against its relation before anything is loaded.
func (o *Orchestrator) validate(sets []RecordSet) (map[string]RecordSet, error) {
	known := make(map[string]Relation, len(o.order))
	for _, rel := range o.order {
		known[rel.Name] = rel
	}

	byRelation := make(map[string]RecordSet, len(sets))
	for _, rs := range sets {
		rel, ok := known[rs.Relation]
		if !ok {
			return nil, fmt.Errorf("%w: record set for unknown relation %q", ErrInvalidConfiguration, rs.Relation)
		}
		if _, dup := byRelation[rs.Relation]; dup {
			return nil, fmt.Errorf("%w: more than one record set for relation %q", ErrInvalidConfiguration, rs.Relation)
		}
		if err := rs.checkShape(rel); err != nil {
			return nil, err
		}
		byRelation[rs.Relation] = rs
	}

	for _, rel := range o.order {
		if _, ok := byRelation[rel.Name]; !ok {
			byRelation[rel.Name] = RecordSet{Relation: rel.Name}
		}
	}
	return byRelation, nil
}

// Run opens the store described by storeConfig, loads sets and closes the store.
// A connection failure returns ErrConnection together with an empty report.
func Run(ctx context.Context, storeConfig StoreConfig, config *OrchestratorConfig, sets []RecordSet, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	// Bad configuration or input never opens a connection.
	orch, err := NewOrchestrator(nil, config, logger)
	if err != nil {
		return nil, err
	}
	if _, err := orch.validate(sets); err != nil {
		return newReport(orch.order), err
	}

	store, err := Open(ctx, storeConfig)
	if err != nil {
		logger.Error("Failed to connect", "driver", storeConfig.Driver, "error", err)
		return newReport(orch.order), err
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	orch.store = store
	return orch.Run(ctx, sets)
}
