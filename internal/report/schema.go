package report

import (
	"cdrcli/pkg/contracts"
	"cdrcli/pkg/contracts/domain"
)

// SchemaVersion identifies the column layout written to the workbook
const SchemaVersion = contracts.ReportSchemaVersion

// Column maps one report column to a field of a no-answer row
type Column struct {
	Header string
	Value  func(domain.NoAnswerRow) any
}

// Schema is the ordered column layout of the report
type Schema struct {
	Version int
	Columns []Column
}

// Headers returns the header cells in order
func (s Schema) Headers() []any {
	out := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Header
	}
	return out
}

// Row returns the cells of one data row in order
func (s Schema) Row(row domain.NoAnswerRow) []any {
	out := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Value(row)
	}
	return out
}

// NoAnswerSchema is the layout the contact desk works from
func NoAnswerSchema() Schema {
	return Schema{
		Version: SchemaVersion,
		Columns: []Column{
			{Header: "발신번호", Value: func(r domain.NoAnswerRow) any { return r.Sender }},
			{Header: "통화시도횟수", Value: func(r domain.NoAnswerRow) any { return r.Attempts }},
			{Header: "담당자", Value: func(r domain.NoAnswerRow) any { return r.Staff }},
			{Header: "성명", Value: func(r domain.NoAnswerRow) any { return r.Member }},
			{Header: "통화결과", Value: func(r domain.NoAnswerRow) any { return r.Result }},
		},
	}
}
