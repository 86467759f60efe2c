package cdr

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "cdrcli/internal/errors"
	"cdrcli/pkg/contracts/domain"
)

// FieldCount is the number of positional fields in a CDR line
const FieldCount = 8

// DefaultTimestampLayouts are tried in order when parsing timestamp fields.
// Accepted forms are zone-less wall-clock times:
//
//	2025-12-08 10:05:00
//	2025-12-08T10:05:00
//	2025/12/08 10:05:00
//	2025.12.08 10:05:00
//	2025-12-08 10:05
//	20251208100500
//
// Fractional seconds after a full time are accepted.
// Values with a zone designator ("Z", "+09:00") are rejected rather than
// shifted, since the business-hours window compares the exported local time.
var DefaultTimestampLayouts = []string{
	domain.TimestampLayout,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006.01.02 15:04:05",
	"2006-01-02 15:04",
	"20060102150405",
}

// Reader decodes headerless CDR exports into call records
type Reader struct {
	logger  *slog.Logger
	layouts []string
}

// NewReader creates a new CDR reader
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		logger:  logger.With(slog.String("component", "cdr_reader")),
		layouts: DefaultTimestampLayouts,
	}
}

// ReadFile reads every record of the export at path
func (r *Reader) ReadFile(path string) ([]domain.CallRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewInputNotFoundError(path, err)
		}
		return nil, apperrors.NewIOReadError(fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()

	records, err := r.Decode(file)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeIORead) {
			return nil, err
		}
		return nil, apperrors.NewIOReadError(fmt.Sprintf("read %s", path), err)
	}
	if len(records) == 0 {
		r.logger.Warn("cdr_file_empty", slog.String("path", path))
		return nil, apperrors.NewEmptyInputError(path)
	}

	r.logger.Info("cdr_file_read",
		slog.String("path", path),
		slog.Int("records", len(records)))
	return records, nil
}

// Decode parses UTF-8 CSV (leading BOM tolerated) from src. Invalid UTF-8
// is an error, never replaced.
func (r *Reader) Decode(src io.Reader) ([]domain.CallRecord, error) {
	// The validator runs on the raw bytes; the BOM decoder would otherwise
	// substitute U+FFFD for them.
	decoded := transform.NewReader(src, transform.Chain(encoding.UTF8Validator, unicode.UTF8BOM.NewDecoder()))
	csvReader := csv.NewReader(decoded)
	csvReader.FieldsPerRecord = FieldCount

	var records []domain.CallRecord
	lastLine := 0
	for {
		fields, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, encoding.ErrInvalidUTF8) {
				return nil, apperrors.NewIOReadError(fmt.Sprintf("line %d: invalid UTF-8", lastLine+1), err)
			}
			return nil, apperrors.NewIOReadError("decode csv", err)
		}

		line, _ := csvReader.FieldPos(0)
		lastLine = line
		record, err := r.parseRecord(fields)
		if err != nil {
			return nil, apperrors.NewIOReadError(fmt.Sprintf("line %d", line), err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Reader) parseRecord(fields []string) (domain.CallRecord, error) {
	var rec domain.CallRecord
	var err error

	if rec.RecDT, err = r.parseTime(fields[0]); err != nil {
		return rec, fmt.Errorf("RecDT: %w", err)
	}
	rec.SendNum = Normalize(fields[1])
	rec.RecvNum = Normalize(fields[2])
	rec.Gubun = Normalize(fields[3])
	if rec.StartDT, err = r.parseTime(fields[4]); err != nil {
		return rec, fmt.Errorf("StartDT: %w", err)
	}
	if rec.EndDT, err = r.parseTime(fields[5]); err != nil {
		return rec, fmt.Errorf("EndDT: %w", err)
	}
	rec.CallGubun = Normalize(fields[6])
	rec.Result = Normalize(fields[7])
	return rec, nil
}

func (r *Reader) parseTime(field string) (sql.NullTime, error) {
	value := strings.TrimSpace(field)
	if value == "" {
		return sql.NullTime{}, nil
	}
	for _, layout := range r.layouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return sql.NullTime{Time: t, Valid: true}, nil
		}
	}
	return sql.NullTime{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// Normalize maps blank or whitespace-only values to an absent field and
// keeps every other value unchanged.
func Normalize(field string) sql.NullString {
	if strings.TrimSpace(field) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: field, Valid: true}
}
