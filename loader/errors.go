// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrConnection is returned when the run's database connection cannot be established.
	// It is fatal for the whole run: no relation is loaded.
	ErrConnection = errors.New("database connection failed")

	// ErrInvalidConfiguration reports a malformed batch size, relation schema or record set.
	// It is surfaced before planning starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrBatchExecution wraps every driver or server error raised while loading a batch.
	ErrBatchExecution = errors.New("batch execution failed")

	// ErrSimulatedFault is the synthetic failure produced by fault injection.
	ErrSimulatedFault = errors.New("simulated fault")
)

// ErrorClass tells the retry coordinator whether a failure is worth another attempt.
type ErrorClass int

const (
	// Transient failures (lock contention, serialization, connection blips, timeouts).
	Transient ErrorClass = iota
	// Fatal failures that would fail identically on retry (constraint or data errors).
	Fatal
)

func (c ErrorClass) String() string {
	if c == Fatal {
		return "fatal"
	}
	return "transient"
}

// Classify maps a batch failure to an ErrorClass.
func Classify(err error) ErrorClass {
	if err == nil {
		return Transient
	}
	if errors.Is(err, ErrSimulatedFault) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return Transient
	}
	if errors.Is(err, ErrInvalidConfiguration) {
		return Fatal
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.SQLState())
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifySQLState(string(pqErr.Code))
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return Transient
		default:
			return Fatal
		}
	}
	// Unknown driver errors (I/O, closed connection) are treated as transient.
	return Transient
}

func classifySQLState(code string) ErrorClass {
	switch code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03", // lock_not_available (incl. lock_timeout)
		"57014": // query_canceled (statement_timeout)
		return Transient
	}
	if len(code) < 2 {
		return Transient
	}
	switch code[:2] {
	case "08", // connection_exception
		"40", // transaction_rollback
		"53", // insufficient_resources
		"57": // operator_intervention
		return Transient
	default:
		return Fatal
	}
}
