package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdrcli/internal/infrastructure"
	"cdrcli/internal/store"
)

const schema = `
CREATE TABLE CDR (RecDT DATETIME NULL, SendNum TEXT NULL, RecvNum TEXT NULL, Gubun TEXT NULL,
                  StartDT DATETIME NULL, EndDT DATETIME NULL, CallGubun TEXT NULL, Result TEXT NULL);
CREATE TABLE Member (Mobile TEXT, Name TEXT, Charge_IDP TEXT);
CREATE TABLE Staff (SaBun TEXT, SaName TEXT);
`

const export = "2025-12-08 10:05:00,01033330000,0212345678,OUT,,,TEL,NoAnswer\n" +
	"2025-12-08 10:06:00,01033330000,0212345678,OUT,,,TEL,NoAnswer\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// useSQLite points the CLI at a fresh SQLite database through the environment
func useSQLite(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cdr.db")
	raw, err := sql.Open(store.DriverSQLite, dbPath)
	require.NoError(t, err)
	_, err = raw.Exec(schema)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	t.Setenv("CDR_DATABASE_DRIVER", "sqlite")
	t.Setenv("CDR_DATABASE_NAME", dbPath)
	t.Setenv("CDR_LOGGING_LEVEL", "error")
	return dbPath
}

func TestDateCmd(t *testing.T) {
	out, err := execute(t, "date", filepath.Join("in", "CDR-25120900.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "business date: 2025-12-08")
	assert.Contains(t, out, "file date:     2025-12-09")
	assert.Contains(t, out, "report code:   20251208")

	_, err = execute(t, "date", "CDR-2512.csv")
	assert.Error(t, err)
}

func TestRunCmd(t *testing.T) {
	useSQLite(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "CDR-25120900.csv")
	require.NoError(t, os.WriteFile(input, []byte(export), 0o644))
	metrics := filepath.Join(dir, "cdr.prom")

	out, err := execute(t, "run", input, "--batch-size", "1", "--metrics-file", metrics)
	require.NoError(t, err, out)

	report := filepath.Join(dir, "20251208_미통화리스트.xlsx")
	assert.FileExists(t, report)
	assert.Contains(t, out, "staged 1/2 rows")
	assert.Contains(t, out, "100% done")
	assert.Contains(t, out, "완료: "+report)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `cdr_runs_total{status="success"} 1`)
	assert.Contains(t, string(prom), `cdr_ledger_rows_total 2`)
}

func TestRunCmd_FailureExitsWithError(t *testing.T) {
	useSQLite(t)
	missing := filepath.Join(t.TempDir(), "CDR-25120900.csv")

	out, err := execute(t, "run", missing)
	require.Error(t, err)
	assert.Contains(t, out, "failed at validate")
	assert.Contains(t, out, "실패:")
}

func TestSettingsShow_MasksCredentials(t *testing.T) {
	useSQLite(t)
	t.Setenv("CDR_DATABASE_USER", "cdr_loader")
	t.Setenv("CDR_DATABASE_PASSWORD", "s3cret")

	out, err := execute(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "driver:   sqlite")
	assert.Contains(t, out, "user:     *")
	assert.NotContains(t, out, "cdr_loader")
	assert.NotContains(t, out, "s3cret")

	out, err = execute(t, "settings", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"driver": "sqlite"`)
	assert.NotContains(t, out, "s3cret")
}
