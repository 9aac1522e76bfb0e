// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import "fmt"

// Pass identifies whether a batch belongs to the initial pass or the retry pass.
type Pass int

const (
	PassInitial Pass = iota
	PassRetry
)

func (p Pass) String() string {
	if p == PassRetry {
		return "retry"
	}
	return "initial"
}

// Batch is a contiguous slice of a RecordSet, loaded as one transaction.
// Index is the batch's position in its plan.
type Batch struct {
	Relation string
	Index    int
	Pass     Pass
	Rows     []Row
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int { return len(b.Rows) }

// Plan splits rs into order-preserving batches of at most size rows.
// Only the last batch may be shorter. The batches share rs's backing array.
func Plan(rs RecordSet, size int) ([]Batch, error) {
	return plan(rs, size, PassInitial)
}

func plan(rs RecordSet, size int, pass Pass) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfiguration, size)
	}
	if len(rs.Rows) == 0 {
		return nil, nil
	}

	batches := make([]Batch, 0, (len(rs.Rows)-1)/size+1)
	for start := 0; start < len(rs.Rows); start += size {
		end := min(start+size, len(rs.Rows))
		batches = append(batches, Batch{
			Relation: rs.Relation,
			Index:    len(batches),
			Pass:     pass,
			Rows:     rs.Rows[start:end:end],
		})
	}
	return batches, nil
}
