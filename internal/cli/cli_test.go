package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/L2AsHdz/covid-19-data-analysis/loader"
)

const testGlobalCSV = "Date_reported,Country_code,Country,WHO_region,New_cases,Cumulative_cases,New_deaths,Cumulative_deaths\n" +
	"03/13/2020,GT,Guatemala,AMRO,1,1,0,0\n" +
	"03/14/2020,GT,Guatemala,AMRO,0,1,1,1\n"

const testMunicipalCSV = "departamento,codigo_departamento,municipio,codigo_municipio,poblacion,2020-03-13,2020-03-14\n" +
	"Guatemala,1,Guatemala,101,923392,0,1\n" +
	"Escuintla,5,Escuintla,501,157744,0,0\n"

type env struct {
	dir    string
	db     string
	global string
	local  string
}

func setup(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testGlobalCSV))
	}))
	t.Cleanup(srv.Close)

	local := filepath.Join(dir, "municipal.csv")
	require.NoError(t, os.WriteFile(local, []byte(testMunicipalCSV), 0o600))

	return env{dir: dir, db: filepath.Join(dir, "covid.db"), global: srv.URL, local: local}
}

func (e env) args(cmd string, extra ...string) []string {
	return append([]string{
		cmd,
		"--database.driver", loader.DriverSQLite,
		"--database.name", e.db,
		"--local-csv-name", e.local,
		"--url-global-csv", e.global,
		"--retry.delay", "0s",
		"--log.level", "error",
	}, extra...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := executeWithLog(t, args...)
	return stdout, err
}

func executeWithLog(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestLoadCommand_EndToEnd(t *testing.T) {
	e := setup(t)

	out, err := execute(t, e.args("init-schema")...)
	require.NoError(t, err)
	require.Contains(t, out, "schema ready")

	out, err = execute(t, e.args("load", "--batch-size", "1")...)
	require.NoError(t, err)
	// 2 departments + 2 municipalities + 4 death counts + 2 summary days
	require.Equal(t, "committed=10 failed=0\n", out)
}

func TestInitSchemaCommand_ClosesStore(t *testing.T) {
	e := setup(t)
	args := append(e.args("init-schema"), "--log.level", "debug", "--log.format", "text")

	for i := 0; i < 2; i++ {
		out, logs, err := executeWithLog(t, args...)
		require.NoError(t, err)
		require.Contains(t, out, "schema ready")
		require.Contains(t, logs, "Schema ready")
		require.NotContains(t, logs, "Failed to close store")
	}
}

func TestLoadCommand_DryRunDoesNotConnect(t *testing.T) {
	e := setup(t)
	e.db = filepath.Join(e.dir, "missing", "covid.db")

	out, err := execute(t, e.args("load", "--dry-run")...)
	require.NoError(t, err)
	require.Contains(t, out, "department=2\n")
	require.Contains(t, out, "municipal_death_count=4\n")
	require.Contains(t, out, "national_daily_summary=2\n")
}

func TestLoadCommand_InvalidBatchSize(t *testing.T) {
	e := setup(t)

	out, err := execute(t, e.args("load", "--batch-size", "0")...)
	require.ErrorIs(t, err, loader.ErrInvalidConfiguration)
	require.Empty(t, out)
}

func TestLoadCommand_ConnectionFailure(t *testing.T) {
	e := setup(t)
	e.db = filepath.Join(e.dir, "missing", "covid.db")

	out, err := execute(t, e.args("load")...)
	require.ErrorIs(t, err, loader.ErrConnection)
	require.Equal(t, "committed=0 failed=0\n", out)
}

func TestLoadCommand_ConfigFile(t *testing.T) {
	e := setup(t)
	cfgPath := filepath.Join(e.dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"batch_size": -3}`), 0o600))

	_, err := execute(t, e.args("load")...)
	require.ErrorIs(t, err, loader.ErrInvalidConfiguration)
}
