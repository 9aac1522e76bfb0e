package loader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, Transient},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, Transient},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, Transient},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, Transient},
		{"connection failure", &pgconn.PgError{Code: "08006"}, Transient},
		{"too many connections", &pgconn.PgError{Code: "53300"}, Transient},
		{"unique violation", &pgconn.PgError{Code: "23505"}, Fatal},
		{"check violation", &pgconn.PgError{Code: "23514"}, Fatal},
		{"invalid datetime", &pgconn.PgError{Code: "22007"}, Fatal},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, Fatal},
		{"pq foreign key", &pq.Error{Code: "23503"}, Fatal},
		{"pq deadlock", &pq.Error{Code: "40P01"}, Transient},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, Transient},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, Transient},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, Fatal},
		{"simulated", fmt.Errorf("%w: %w", ErrBatchExecution, ErrSimulatedFault), Transient},
		{"deadline", fmt.Errorf("%w: %w", ErrBatchExecution, context.DeadlineExceeded), Transient},
		{"bad shape", fmt.Errorf("%w: %w", ErrBatchExecution, ErrInvalidConfiguration), Fatal},
		{"unknown", errors.New("broken pipe"), Transient},
		{"network timeout", &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}, Transient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("%w: departments batch 3 row 7: %w", ErrBatchExecution, tc.err)
			require.Equal(t, tc.want, Classify(wrapped))
		})
	}
}
