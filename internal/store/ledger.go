package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "cdrcli/internal/errors"
	"cdrcli/pkg/contracts/domain"
)

// MergeLedger appends every staged row to the permanent ledger in a single
// statement and returns the number of rows inserted.
func (s *Session) MergeLedger(ctx context.Context, h *StagingHandle) (int64, error) {
	cols := strings.Join(domain.CallRecordColumns, ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		QuoteQualified(s.dialect, s.tables.Ledger), cols, cols, h.Quoted)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewMergeError("begin ledger merge", err)
	}
	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return 0, apperrors.NewMergeError(fmt.Sprintf("append staging rows to %s", s.tables.Ledger), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return 0, apperrors.NewMergeError("read ledger row count", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewMergeError("commit ledger merge", err)
	}

	s.logger.InfoContext(ctx, "ledger_merged",
		slog.String("identity", h.Identity),
		slog.String("ledger", s.tables.Ledger),
		slog.Int64("rows", n))
	return n, nil
}
