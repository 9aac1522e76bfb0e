// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RelationReport accumulates batch outcomes of one relation across both passes.
type RelationReport struct {
	Relation      string
	Rows          int // rows in the input record set
	Planned       int // batches produced by the initial plan
	Committed     int
	Failed        int // batches failed after the retry pass
	Retried       int // batches resubmitted in the retry pass
	Fatal         int // failed batches classified Fatal
	RowsCommitted int
}

func (r *RelationReport) add(out Outcome) {
	if out.Status == Committed {
		r.Committed++
		r.RowsCommitted += out.Batch.Len()
		return
	}
	r.Failed++
	if out.Class == Fatal {
		r.Fatal++
	}
}

// Report is the result of one orchestrator run. It is owned by the run's caller.
type Report struct {
	RunID     uuid.UUID
	Relations []*RelationReport
	Elapsed   time.Duration

	byName map[string]*RelationReport
}

func newReport(relations []Relation) *Report {
	r := &Report{
		RunID:  uuid.New(),
		byName: make(map[string]*RelationReport, len(relations)),
	}
	for _, rel := range relations {
		r.relation(rel.Name)
	}
	return r
}

func (r *Report) relation(name string) *RelationReport {
	if rr, ok := r.byName[name]; ok {
		return rr
	}
	rr := &RelationReport{Relation: name}
	r.byName[name] = rr
	r.Relations = append(r.Relations, rr)
	return rr
}

// Relation returns the report of a single relation.
func (r *Report) Relation(name string) (RelationReport, bool) {
	rr, ok := r.byName[name]
	if !ok {
		return RelationReport{}, false
	}
	return *rr, true
}

// Committed returns the total number of committed batches.
func (r *Report) Committed() int {
	n := 0
	for _, rr := range r.Relations {
		n += rr.Committed
	}
	return n
}

// Failed returns the total number of batches that failed on every attempt.
func (r *Report) Failed() int {
	n := 0
	for _, rr := range r.Relations {
		n += rr.Failed
	}
	return n
}

// Planned returns the total number of batches produced at planning time.
func (r *Report) Planned() int {
	n := 0
	for _, rr := range r.Relations {
		n += rr.Planned
	}
	return n
}

// RowsCommitted returns the total number of rows persisted by the run.
func (r *Report) RowsCommitted() int {
	n := 0
	for _, rr := range r.Relations {
		n += rr.RowsCommitted
	}
	return n
}

// Log writes one summary line per relation and a total line.
func (r *Report) Log(logger *slog.Logger) {
	for _, rr := range r.Relations {
		logger.Info("Relation summary",
			"run_id", r.RunID,
			"relation", rr.Relation,
			"rows", rr.Rows,
			"planned", rr.Planned,
			"committed", rr.Committed,
			"failed", rr.Failed,
			"retried", rr.Retried,
			"fatal", rr.Fatal,
			"rows_committed", rr.RowsCommitted,
		)
	}
	logger.Info("Load finished",
		"run_id", r.RunID,
		"committed", r.Committed(),
		"failed", r.Failed(),
		"rows_committed", r.RowsCommitted(),
		"elapsed", r.Elapsed,
	)
}
