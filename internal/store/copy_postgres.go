package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"cdrcli/pkg/contracts/domain"
)

// copyBatch streams one batch with COPY inside its own transaction on the
// session's pinned connection.
func (s *Session) copyBatch(ctx context.Context, h *StagingHandle, rows []domain.CallRecord) error {
	// unquoted DDL folds column names to lower case
	columns := make([]string, len(domain.CallRecordColumns))
	for i, name := range domain.CallRecordColumns {
		columns[i] = strings.ToLower(name)
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = row.Values(s.dialect.BindTime)
	}

	return s.conn.Raw(func(driverConn any) error {
		stdConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		conn := stdConn.Conn()

		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin copy: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{h.Identity}, columns, pgx.CopyFromRows(values)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("copy batch: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit copy: %w", err)
		}
		return nil
	})
}
