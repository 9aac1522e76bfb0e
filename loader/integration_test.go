package loader

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a disposable PostgreSQL container and returns its URL.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("covid_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func pgCount(t *testing.T, connStr, table string) int {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	defer conn.Close(ctx)

	var n int
	require.NoError(t, conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n))
	return n
}

func TestIntegration_PostgresDrivers(t *testing.T) {
	connStr := startPostgres(t)

	for _, driver := range []string{DriverPgx, DriverPostgres} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(ctx, StoreConfig{Driver: driver, URL: connStr})
			require.NoError(t, err)
			defer store.Close(ctx)
			require.NoError(t, EnsureSchema(ctx, store))
			require.NoError(t, store.Exec(ctx,
				"TRUNCATE departments, municipalities, municipal_deaths, daily_summary"))

			day := time.Date(2020, time.May, 2, 0, 0, 0, 0, time.UTC)
			sets := testRecordSets()
			sets[1].Rows = append(sets[1].Rows, Row{301, day, -4}) // second deaths batch violates the CHECK

			orch, err := NewOrchestrator(store, &OrchestratorConfig{
				BatchSize: 2,
				Retry:     RetryPolicy{Backoff: ConstantBackoff(0), SkipFatal: true},
			}, nil)
			require.NoError(t, err)

			report, err := orch.Run(ctx, sets)
			require.NoError(t, err)

			deaths, _ := report.Relation(RelMunicipalDeathCount)
			require.Equal(t, 2, deaths.Planned)
			require.Equal(t, 1, deaths.Committed)
			require.Equal(t, 1, deaths.Failed)
			require.Equal(t, 1, deaths.Fatal)
			require.Zero(t, deaths.Retried)

			require.Equal(t, report.Planned(), report.Committed()+report.Failed())
			require.Equal(t, 2, pgCount(t, connStr, "departments"))
			require.Equal(t, 2, pgCount(t, connStr, "municipalities"))
			require.Equal(t, 2, pgCount(t, connStr, "municipal_deaths"), "failed batch rolled back entirely")
			require.Equal(t, 2, pgCount(t, connStr, "daily_summary"))
		})
	}
}

func TestIntegration_ConnectionRefused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := Run(ctx, StoreConfig{
		Driver:   DriverPgx,
		Host:     "127.0.0.1",
		Port:     1,
		User:     "nobody",
		Database: "covid",
		SSLMode:  "disable",
	}, &OrchestratorConfig{BatchSize: 100}, testRecordSets(), nil)
	require.ErrorIs(t, err, ErrConnection)
	require.Zero(t, report.Committed())
	require.Zero(t, report.Failed())
}
