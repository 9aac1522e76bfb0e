package loader

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// openTestSQLite opens a file-backed SQLite store with the target schema.
func openTestSQLite(t *testing.T) (Store, string) {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "load.db")
	store, err := Open(ctx, StoreConfig{Driver: DriverSQLite, Database: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	require.NoError(t, EnsureSchema(ctx, store))
	return store, path
}

// countRows reads a table through a separate connection.
func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func departmentRows(n int) RecordSet {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{i + 1, fmt.Sprintf("department-%d", i+1)}
	}
	return RecordSet{Relation: RelDepartment, Rows: rows}
}

func testRecordSets() []RecordSet {
	day := time.Date(2020, time.March, 13, 0, 0, 0, 0, time.UTC)
	return []RecordSet{
		{Relation: RelNationalDailySummary, Rows: []Row{
			{day, 1, 1, 0, 0, 0, 0},
			{day.AddDate(0, 0, 1), 2, 3, 1, 1, 1, 0},
		}},
		{Relation: RelMunicipalDeathCount, Rows: []Row{
			{101, day, 0},
			{101, day.AddDate(0, 0, 1), 1},
			{201, day, 0},
		}},
		{Relation: RelMunicipality, Rows: []Row{
			{101, "Guatemala", 1, 923392},
			{201, "Guastatoya", 2, 28474},
		}},
		{Relation: RelDepartment, Rows: []Row{
			{1, "Guatemala"},
			{2, "El Progreso"},
		}},
	}
}

// fakeStore records every transaction instead of talking to a database.
type fakeStore struct {
	begins    int
	rollbacks int
	commits   [][]Row

	// execErr, when set, decides the error of each Exec call.
	execErr func(sql string, args []any) error
	// block makes Exec wait for the batch context to expire.
	block bool
}

func (s *fakeStore) Dialect() Dialect { return DialectPostgres }

func (s *fakeStore) Begin(ctx context.Context) (Tx, error) {
	s.begins++
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) Exec(ctx context.Context, sql string) error { return nil }

func (s *fakeStore) Close(ctx context.Context) error { return nil }

func (s *fakeStore) committedRows() []Row {
	var rows []Row
	for _, c := range s.commits {
		rows = append(rows, c...)
	}
	return rows
}

type fakeTx struct {
	store *fakeStore
	rows  []Row
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) error {
	if t.store.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if t.store.execErr != nil {
		if err := t.store.execErr(sql, args); err != nil {
			return err
		}
	}
	t.rows = append(t.rows, Row(args))
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.store.commits = append(t.store.commits, t.rows)
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.store.rollbacks++
	t.rows = nil
	return nil
}

func noWait(context.Context, time.Duration) error { return nil }
