package operations

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "cdrcli/internal/errors"
	"cdrcli/internal/report"
	"cdrcli/internal/store"
)

const referenceSchema = `
CREATE TABLE CDR (RecDT DATETIME NULL, SendNum TEXT NULL, RecvNum TEXT NULL, Gubun TEXT NULL,
                  StartDT DATETIME NULL, EndDT DATETIME NULL, CallGubun TEXT NULL, Result TEXT NULL);
CREATE TABLE Member (Mobile TEXT, Name TEXT, Charge_IDP TEXT);
CREATE TABLE Staff (SaBun TEXT, SaName TEXT);
INSERT INTO Member VALUES ('010-3333-0000', '홍길동', 'S001');
INSERT INTO Staff VALUES ('S001', '김담당');
`

var sampleCDR = strings.Join([]string{
	"2025-12-08 10:00:00,01011110000,01022220000,OUT,2025-12-08 10:00:05,2025-12-08 10:01:00,TEL,Success",
	"2025-12-08 10:05:00,01033330000,0212345678,OUT,,,TEL,NoAnswer",
	"2025-12-08 11:05:00,01033330000,0212345678,OUT,,,TEL,NoAnswer",
	"2025-12-08 12:00:00,01044440000,0212345678,OUT,,,TEL,Busy",
	"2025-12-08 20:00:00,01055550000,0212345678,OUT,,,TEL,NoAnswer",
	"2025-12-08 10:00:00,0101234567,0212345678,OUT,,,TEL,NoAnswer",
	"2025-12-08 13:00:00,01022220000,0212345678,OUT,,,TEL,NoAnswer",
}, "\n") + "\n"

type pipelineFixture struct {
	dir    string
	input  string
	dbPath string
}

func newPipelineFixture(t *testing.T, schema string) pipelineFixture {
	t.Helper()
	dir := t.TempDir()

	input := filepath.Join(dir, "CDR-25120900.csv")
	require.NoError(t, os.WriteFile(input, []byte("\ufeff"+sampleCDR), 0o644))

	dbPath := filepath.Join(dir, "cdr.db")
	raw, err := sql.Open(store.DriverSQLite, dbPath)
	require.NoError(t, err)
	_, err = raw.Exec(schema)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	return pipelineFixture{dir: dir, input: input, dbPath: dbPath}
}

func (f pipelineFixture) opener() Opener {
	return func(ctx context.Context) (*store.DB, error) {
		return store.Open(ctx, store.ConnInfo{Driver: store.DriverSQLite, Database: f.dbPath}, store.DefaultTableNames(), nil)
	}
}

func (f pipelineFixture) query(t *testing.T, q string) int64 {
	t.Helper()
	raw, err := sql.Open(store.DriverSQLite, f.dbPath)
	require.NoError(t, err)
	defer raw.Close()

	var n int64
	require.NoError(t, raw.QueryRow(q).Scan(&n))
	return n
}

func (f pipelineFixture) stagingExists(t *testing.T) bool {
	return f.query(t, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'CDR-25120900'`) > 0
}

func runPipeline(t *testing.T, deps Dependencies, input string) (*RunState, []Event, error) {
	t.Helper()
	registry, err := NewPipeline(deps)
	require.NoError(t, err)
	require.Equal(t, len(StageOrder), registry.Count())

	reporter := NewReporter(DefaultEventBuffer, nil)
	m := NewManager(registry, reporter)
	state := NewRunState("", input)
	_, events, err := runAndCollect(context.Background(), t, m, reporter, state)
	return state, events, err
}

func TestPipeline_EndToEnd(t *testing.T) {
	f := newPipelineFixture(t, referenceSchema)

	state, events, err := runPipeline(t, Dependencies{
		Open:      f.opener(),
		BatchSize: 3,
		Correlate: store.DefaultCorrelateOptions(),
	}, f.input)
	require.NoError(t, err)

	wantReport := filepath.Join(f.dir, "20251208_"+report.DefaultLabel+".xlsx")
	assert.Equal(t, wantReport, state.ReportPath)
	assert.FileExists(t, wantReport)
	assert.Equal(t, "20251208", state.BusinessDate.Code())

	assert.Equal(t, 7, state.RowsStaged)
	assert.Equal(t, int64(7), state.LedgerRows)
	assert.Equal(t, int64(7), f.query(t, `SELECT COUNT(*) FROM CDR`), "ledger grows by the staged row count")
	assert.False(t, f.stagingExists(t), "staging is dropped after merge")

	require.Len(t, state.NoAnswers, 2)
	assert.Equal(t, "01033330000", state.NoAnswers[0].Sender)
	assert.Equal(t, 2, state.NoAnswers[0].Attempts)
	assert.Equal(t, "김담당", state.NoAnswers[0].Staff)
	assert.Equal(t, "홍길동", state.NoAnswers[0].Member)
	assert.Equal(t, "01044440000", state.NoAnswers[1].Sender)
	assert.Equal(t, "", state.NoAnswers[1].Member)

	xlsx, err := excelize.OpenFile(wantReport)
	require.NoError(t, err)
	defer xlsx.Close()
	rows, err := xlsx.GetRows(report.DefaultLabel)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "발신번호", rows[0][0])
	assert.Equal(t, []string{"01033330000", "2", "김담당", "홍길동", "NoAnswer"}, rows[1])

	for _, id := range StageOrder {
		assert.Equal(t, StepStatusCompleted, state.GetStepState(id).GetStatus(), id)
	}

	var lines []string
	prev := 0
	for _, e := range events {
		assert.GreaterOrEqual(t, e.Percent, prev)
		prev = e.Percent
		if e.Kind == EventLog {
			lines = append(lines, e.Line)
		}
	}
	assert.Contains(t, lines, "staged 3/7 rows")
	assert.Contains(t, lines, "staged 7/7 rows")
	assert.Contains(t, lines, "read 7 call records from CDR-25120900.csv (1 answered)")
	assert.Contains(t, lines, "appended 7 rows to the ledger")
	for _, line := range lines {
		assert.NotContains(t, line, "warning:")
	}
	last := events[len(events)-1]
	assert.Equal(t, EventDone, last.Kind)
	assert.Equal(t, wantReport, last.Line)
}

func TestPipeline_QueryFailureStillDropsStaging(t *testing.T) {
	f := newPipelineFixture(t, `
CREATE TABLE CDR (RecDT DATETIME NULL, SendNum TEXT NULL, RecvNum TEXT NULL, Gubun TEXT NULL,
                  StartDT DATETIME NULL, EndDT DATETIME NULL, CallGubun TEXT NULL, Result TEXT NULL);
CREATE TABLE Staff (SaBun TEXT, SaName TEXT);
`)

	state, events, err := runPipeline(t, Dependencies{
		Open:      f.opener(),
		Correlate: store.DefaultCorrelateOptions(),
	}, f.input)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeQuery))

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StageCorrelate, opErr.Step)

	assert.False(t, f.stagingExists(t), "failure path still drops staging")
	assert.Equal(t, int64(0), f.query(t, `SELECT COUNT(*) FROM CDR`), "ledger untouched")
	assert.Empty(t, state.ReportPath)
	assert.NoFileExists(t, filepath.Join(f.dir, "20251208_"+report.DefaultLabel+".xlsx"))
	assert.Equal(t, EventFailed, events[len(events)-1].Kind)
}

func TestPipeline_InputErrors(t *testing.T) {
	dir := t.TempDir()
	badDate := filepath.Join(dir, "CDR-99999999.csv")
	require.NoError(t, os.WriteFile(badDate, []byte(sampleCDR), 0o644))
	empty := filepath.Join(dir, "CDR-25120900.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	opened := false
	opener := func(ctx context.Context) (*store.DB, error) {
		opened = true
		return nil, apperrors.NewConnectionError("unreachable", nil)
	}

	tests := []struct {
		name     string
		input    string
		wantType apperrors.ErrorType
		step     string
	}{
		{name: "missing file", input: filepath.Join(dir, "CDR-25120800.csv"), wantType: apperrors.ErrTypeInputNotFound, step: StageValidate},
		{name: "bad date token", input: badDate, wantType: apperrors.ErrTypeDateParse, step: StageValidate},
		{name: "empty file", input: empty, wantType: apperrors.ErrTypeEmptyInput, step: StageParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runPipeline(t, Dependencies{Open: opener}, tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)

			var opErr *OperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, tt.step, opErr.Step)
		})
	}
	assert.False(t, opened, "no connection is attempted for bad input")
}

func TestPipeline_ConnectionFailure(t *testing.T) {
	f := newPipelineFixture(t, referenceSchema)

	_, _, err := runPipeline(t, Dependencies{
		Open: func(ctx context.Context) (*store.DB, error) {
			return nil, apperrors.NewConnectionError("ping sqlserver at db:1433", errors.New("connection refused"))
		},
	}, f.input)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConnection))
	assert.Equal(t, StageConnect, err.(*OperationError).Step)
}

func TestNewPipeline_RequiresOpener(t *testing.T) {
	_, err := NewPipeline(Dependencies{})
	assert.Error(t, err)
}
