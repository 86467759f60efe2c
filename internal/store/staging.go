package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "cdrcli/internal/errors"
	"cdrcli/pkg/contracts/domain"
)

// DefaultBatchSize is the number of rows committed per staging transaction
const DefaultBatchSize = 1000

// MaxIdentityLength bounds staging table names; SQL Server allows 128 characters
const MaxIdentityLength = 128

// StagingHandle identifies a prepared staging relation
type StagingHandle struct {
	Identity string
	Quoted   string
}

// BatchFunc is called after each committed batch with the running total
type BatchFunc func(loaded, total int)

// ValidateIdentity checks a staging table name derived from an untrusted
// file name. Quoting happens afterwards in the dialect.
func ValidateIdentity(identity string, tables TableNames) error {
	if strings.TrimSpace(identity) == "" {
		return fmt.Errorf("staging identity is empty")
	}
	if !utf8.ValidString(identity) {
		return fmt.Errorf("staging identity %q is not valid UTF-8", identity)
	}
	if n := utf8.RuneCountInString(identity); n > MaxIdentityLength {
		return fmt.Errorf("staging identity has %d characters, limit is %d", n, MaxIdentityLength)
	}
	for _, r := range identity {
		if unicode.IsControl(r) {
			return fmt.Errorf("staging identity %q contains control characters", identity)
		}
	}
	for _, protected := range []string{tables.Ledger, tables.Member, tables.Staff} {
		if protected == "" {
			continue
		}
		name := protected
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if strings.EqualFold(identity, name) {
			return fmt.Errorf("staging identity %q collides with table %s", identity, protected)
		}
	}
	return nil
}

// PrepareStaging drops any relation named identity and recreates it empty
// with the call record shape.
func (s *Session) PrepareStaging(ctx context.Context, identity string) (*StagingHandle, error) {
	if err := ValidateIdentity(identity, s.tables); err != nil {
		return nil, apperrors.NewSchemaError("invalid staging identity", err).WithContext("identity", identity)
	}
	handle := &StagingHandle{Identity: identity, Quoted: s.dialect.QuoteIdent(identity)}

	dropSQL, dropArgs := s.dialect.DropTableIfExists(handle.Quoted)
	if _, err := s.conn.ExecContext(ctx, dropSQL, dropArgs...); err != nil {
		return nil, apperrors.NewSchemaError("drop existing staging table", err).WithContext("identity", identity)
	}
	if _, err := s.conn.ExecContext(ctx, s.createStagingSQL(handle)); err != nil {
		return nil, apperrors.NewSchemaError("create staging table", err).WithContext("identity", identity)
	}

	s.logger.InfoContext(ctx, "staging_prepared",
		slog.String("identity", identity),
		slog.String("quoted", handle.Quoted))
	return handle, nil
}

func (s *Session) createStagingSQL(h *StagingHandle) string {
	cols := make([]string, len(domain.CallRecordColumns))
	for i, name := range domain.CallRecordColumns {
		colType := s.dialect.TextColumnType()
		if domain.IsTimeColumn(name) {
			colType = s.dialect.TimeColumnType()
		}
		cols[i] = name + " " + colType + " NULL"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", h.Quoted, strings.Join(cols, ", "))
}

func (s *Session) insertSQL(h *StagingHandle) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		h.Quoted,
		strings.Join(domain.CallRecordColumns, ", "),
		strings.Join(s.placeholders(1, len(domain.CallRecordColumns)), ", "))
}

// LoadStaging inserts rows in batches of batchSize, committing each batch
// before the next begins. On failure the returned LoadError carries the
// failing batch index; earlier batches remain committed.
func (s *Session) LoadStaging(ctx context.Context, h *StagingHandle, rows []domain.CallRecord, batchSize int, onBatch BatchFunc) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	total := len(rows)
	loaded := 0

	for batch, start := 0, 0; start < total; batch, start = batch+1, start+batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		if err := ctx.Err(); err != nil {
			return loaded, apperrors.NewLoadError(batch, loaded, err)
		}
		if err := s.writeBatch(ctx, h, rows[start:end]); err != nil {
			s.logger.ErrorContext(ctx, "staging_batch_failed",
				slog.String("identity", h.Identity),
				slog.Int("batch", batch),
				slog.Int("committed_rows", loaded),
				slog.String("error", err.Error()))
			return loaded, apperrors.NewLoadError(batch, loaded, err)
		}

		loaded = end
		s.logger.DebugContext(ctx, "staging_batch_committed",
			slog.String("identity", h.Identity),
			slog.Int("batch", batch),
			slog.Int("loaded", loaded),
			slog.Int("total", total))
		if onBatch != nil {
			onBatch(loaded, total)
		}
	}

	return loaded, nil
}

func (s *Session) writeBatch(ctx context.Context, h *StagingHandle, rows []domain.CallRecord) error {
	if s.dialect.Name() == DriverPostgres {
		return s.copyBatch(ctx, h, rows)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	if err := insertRows(ctx, tx, s.insertSQL(h), rows, s.dialect); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, rows []domain.CallRecord, d Dialect) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Values(d.BindTime)...); err != nil {
			return fmt.Errorf("insert row %d of batch: %w", i, err)
		}
	}
	return nil
}

// DropStaging removes the staging relation. Failures are returned as a
// CleanupWarning for the caller to log; they never fail a run.
func (s *Session) DropStaging(ctx context.Context, h *StagingHandle) error {
	if h == nil {
		return nil
	}
	dropSQL, dropArgs := s.dialect.DropTableIfExists(h.Quoted)
	if _, err := s.conn.ExecContext(ctx, dropSQL, dropArgs...); err != nil {
		return apperrors.NewCleanupWarning(fmt.Sprintf("drop staging table %s", h.Quoted), err).
			WithContext("identity", h.Identity)
	}
	s.logger.InfoContext(ctx, "staging_dropped", slog.String("identity", h.Identity))
	return nil
}

// CountStaged returns the number of rows currently in the staging relation
func (s *Session) CountStaged(ctx context.Context, h *StagingHandle) (int64, error) {
	n, err := s.CountRows(ctx, h.Quoted)
	if err != nil {
		return 0, apperrors.NewQueryError("count staged rows", err)
	}
	return n, nil
}
