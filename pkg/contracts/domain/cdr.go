package domain

import (
	"database/sql"
	"time"
)

// TimestampLayout is the canonical text form of CDR timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// SuccessResult is the result tag of a connected call
const SuccessResult = "Success"

// CallRecord is one row of the daily CDR export. Blank source values are
// stored as invalid (NULL) fields, never as empty strings.
type CallRecord struct {
	RecDT     sql.NullTime   `json:"rec_dt" db:"RecDT"`
	SendNum   sql.NullString `json:"send_num" db:"SendNum"`
	RecvNum   sql.NullString `json:"recv_num" db:"RecvNum"`
	Gubun     sql.NullString `json:"gubun" db:"Gubun"`
	StartDT   sql.NullTime   `json:"start_dt" db:"StartDT"`
	EndDT     sql.NullTime   `json:"end_dt" db:"EndDT"`
	CallGubun sql.NullString `json:"call_gubun" db:"CallGubun"`
	Result    sql.NullString `json:"result" db:"Result"`
}

// CallRecordColumns lists the persisted columns in positional order
var CallRecordColumns = []string{
	"RecDT", "SendNum", "RecvNum", "Gubun", "StartDT", "EndDT", "CallGubun", "Result",
}

// IsTimeColumn reports whether the named column holds a timestamp
func IsTimeColumn(name string) bool {
	switch name {
	case "RecDT", "StartDT", "EndDT":
		return true
	}
	return false
}

// Values returns the record fields in CallRecordColumns order. Absent fields
// are nil; timestamps are passed through bindTime so callers can choose the
// driver representation.
func (r CallRecord) Values(bindTime func(time.Time) any) []any {
	timeValue := func(t sql.NullTime) any {
		if !t.Valid {
			return nil
		}
		if bindTime == nil {
			return t.Time
		}
		return bindTime(t.Time)
	}
	stringValue := func(s sql.NullString) any {
		if !s.Valid {
			return nil
		}
		return s.String
	}

	return []any{
		timeValue(r.RecDT),
		stringValue(r.SendNum),
		stringValue(r.RecvNum),
		stringValue(r.Gubun),
		timeValue(r.StartDT),
		timeValue(r.EndDT),
		stringValue(r.CallGubun),
		stringValue(r.Result),
	}
}

// HasResult reports whether the record carries the given result tag
func (r CallRecord) HasResult(tag string) bool {
	return r.Result.Valid && r.Result.String == tag
}

// NoAnswerRow is one line of the no-answer report
type NoAnswerRow struct {
	Sender   string `json:"sender" db:"SendNum"`
	Attempts int    `json:"attempts" db:"Attempts"`
	Staff    string `json:"staff" db:"SaName"`
	Member   string `json:"member" db:"Name"`
	Result   string `json:"result" db:"Result"`
}

// RunSummary describes the terminal outcome of one pipeline run
type RunSummary struct {
	RunID        string        `json:"run_id"`
	InputPath    string        `json:"input_path"`
	BusinessDate time.Time     `json:"business_date"`
	StagingTable string        `json:"staging_table"`
	RowsRead     int           `json:"rows_read"`
	RowsStaged   int           `json:"rows_staged"`
	NoAnswers    int           `json:"no_answers"`
	LedgerRows   int64         `json:"ledger_rows"`
	ReportPath   string        `json:"report_path,omitempty"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

// Succeeded reports whether the run finished without a fatal error
func (s RunSummary) Succeeded() bool {
	return s.Error == ""
}
