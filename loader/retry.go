// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetryDelay is the wait between the initial pass and the retry pass.
const DefaultRetryDelay = 5 * time.Second

// Backoff returns how long to wait before the given retry attempt (1-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ConstantBackoff waits the same duration before every attempt.
type ConstantBackoff time.Duration

func (b ConstantBackoff) Delay(int) time.Duration { return time.Duration(b) }

// ExponentialBackoff doubles Base per attempt, capped at Max when Max > 0.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// RetryPolicy controls the single retry pass.
type RetryPolicy struct {
	Backoff   Backoff // nil means ConstantBackoff(DefaultRetryDelay)
	SkipFatal bool    // leave Fatal-classified batches failed instead of retrying them
}

// RetryQueue is the ordered list of one relation's failed batches.
type RetryQueue struct {
	batches []Batch
	fatal   int
}

func (q *RetryQueue) push(out Outcome) {
	q.batches = append(q.batches, out.Batch)
	if out.Class == Fatal {
		q.fatal++
	}
}

// Len returns the number of queued batches.
func (q *RetryQueue) Len() int { return len(q.batches) }

// Batches returns the queued batches in failure order.
func (q *RetryQueue) Batches() []Batch { return q.batches }

// RecordSet concatenates the queued batches' rows in failure order.
func (q *RetryQueue) RecordSet(relation string) RecordSet {
	n := 0
	for _, b := range q.batches {
		n += b.Len()
	}
	rows := make([]Row, 0, n)
	for _, b := range q.batches {
		rows = append(rows, b.Rows...)
	}
	return RecordSet{Relation: relation, Rows: rows}
}

// RetryCoordinator collects failed batches per relation during the initial pass
// and resubmits them exactly once.
type RetryCoordinator struct {
	loader    *BatchLoader
	batchSize int
	policy    RetryPolicy
	logger    *slog.Logger
	observer  stageObserver
	queues    map[string]*RetryQueue

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryCoordinator creates a coordinator that re-plans retried rows with batchSize.
func NewRetryCoordinator(loader *BatchLoader, batchSize int, policy RetryPolicy, logger *slog.Logger) *RetryCoordinator {
	if policy.Backoff == nil {
		policy.Backoff = ConstantBackoff(DefaultRetryDelay)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryCoordinator{
		loader:    loader,
		batchSize: batchSize,
		policy:    policy,
		logger:    logger,
		observer:  loader.observer,
		queues:    make(map[string]*RetryQueue),
		sleep:     sleepWithContext,
	}
}

// Record queues a failed initial-pass outcome for retry. It reports whether the
// batch was queued.
func (c *RetryCoordinator) Record(out Outcome) bool {
	if out.Status != Failed || out.Batch.Pass != PassInitial {
		return false
	}
	if c.policy.SkipFatal && out.Class == Fatal {
		return false
	}
	q := c.queues[out.Batch.Relation]
	if q == nil {
		q = &RetryQueue{}
		c.queues[out.Batch.Relation] = q
	}
	q.push(out)
	return true
}

// Queue returns the retry queue of a relation, or nil if nothing failed.
func (c *RetryCoordinator) Queue(relation string) *RetryQueue {
	return c.queues[relation]
}

// Pending returns the number of batches waiting for the retry pass.
func (c *RetryCoordinator) Pending() int {
	n := 0
	for _, q := range c.queues {
		n += q.Len()
	}
	return n
}

// Run waits for the backoff delay and then resubmits every queued relation in the
// given order. Queues are consumed: a second call finds nothing to retry.
// Outcomes update report; batches failing again stay failed.
func (c *RetryCoordinator) Run(ctx context.Context, relations []Relation, report *Report) error {
	pending := c.Pending()
	if pending == 0 {
		return nil
	}

	delay := c.policy.Backoff.Delay(1)
	c.logger.Info("Waiting before retry pass", "batches", pending, "delay", delay)
	start := c.observer.start()
	if err := c.sleep(ctx, delay); err != nil {
		return fmt.Errorf("retry wait interrupted: %w", err)
	}
	c.observer.observe(ctx, StageTiming{Stage: MetricsStageRetry, Pass: PassRetry, Batch: -1, Rows: pending}, start)

	for _, rel := range relations {
		q := c.queues[rel.Name]
		if q == nil || q.Len() == 0 {
			continue
		}
		delete(c.queues, rel.Name)

		batches, err := plan(q.RecordSet(rel.Name), c.batchSize, PassRetry)
		if err != nil {
			return err
		}
		if len(batches) == len(q.batches) {
			for i := range batches {
				batches[i].Index = q.batches[i].Index
			}
		}

		rr := report.relation(rel.Name)
		rr.Retried += q.Len()
		rr.Failed -= q.Len()
		rr.Fatal -= q.fatal
		for _, b := range batches {
			out := c.loader.Load(ctx, rel, b)
			rr.add(out)
			if out.Status == Failed {
				c.logger.Warn("Batch failed again, giving up",
					"relation", rel.Name, "batch", b.Index, "rows", b.Len(),
					"class", out.Class.String(), "error", out.Err)
			}
		}
		c.logger.Info("Retry pass finished",
			"relation", rel.Name, "retried", q.Len(),
			"committed", rr.Committed, "failed", rr.Failed)
	}
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
