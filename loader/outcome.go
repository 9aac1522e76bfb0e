// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

// Status is the result of attempting one batch.
type Status int

const (
	Committed Status = iota
	Failed
)

func (s Status) String() string {
	if s == Failed {
		return "failed"
	}
	return "committed"
}

// Outcome is the explicit result of loading one batch. Err and Class are only
// meaningful when Status is Failed.
type Outcome struct {
	Batch  Batch
	Status Status
	Err    error
	Class  ErrorClass
}

func committed(b Batch) Outcome {
	return Outcome{Batch: b, Status: Committed}
}

func failed(b Batch, err error) Outcome {
	return Outcome{Batch: b, Status: Failed, Err: err, Class: Classify(err)}
}
