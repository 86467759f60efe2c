package store

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "cdrcli/internal/errors"
	"cdrcli/pkg/contracts/domain"
)

// CorrelateOptions parameterises the no-answer query
type CorrelateOptions struct {
	SuccessResult   string
	MinSenderLength int
	WindowStart     string
	WindowEnd       string
}

// DefaultCorrelateOptions returns business hours 09:30:00 to 18:00:00
func DefaultCorrelateOptions() CorrelateOptions {
	return CorrelateOptions{
		SuccessResult:   domain.SuccessResult,
		MinSenderLength: 10,
		WindowStart:     "09:30:00",
		WindowEnd:       "18:00:00",
	}
}

// noAnswerSQL selects senders that never took part in a successful call,
// whose number is longer than the minimum and who called at least once inside
// the window. Attempts counts every staged row of the sender.
func (s *Session) noAnswerSQL(h *StagingHandle) string {
	d := s.dialect
	member := QuoteQualified(d, s.tables.Member)
	staff := QuoteQualified(d, s.tables.Staff)
	p := s.placeholders(1, 5)

	return fmt.Sprintf(`SELECT c.SendNum, c.Attempts,
       COALESCE(MAX(st.SaName), '') AS StaffName,
       COALESCE(MAX(m.Name), '') AS MemberName,
       COALESCE(MAX(t.Result), '') AS Result
FROM %[1]s t
JOIN (SELECT SendNum, COUNT(*) AS Attempts FROM %[1]s WHERE SendNum IS NOT NULL GROUP BY SendNum) c
  ON c.SendNum = t.SendNum
LEFT JOIN %[2]s m ON REPLACE(m.Mobile, '-', '') = t.SendNum
LEFT JOIN %[3]s st ON m.Charge_IDP = st.SaBun
WHERE %[4]s > %[6]s
  AND t.SendNum NOT IN (
    SELECT SendNum FROM %[1]s WHERE Result = %[7]s AND SendNum IS NOT NULL
    UNION
    SELECT RecvNum FROM %[1]s WHERE Result = %[8]s AND RecvNum IS NOT NULL)
  AND %[5]s >= %[9]s AND %[5]s < %[10]s
GROUP BY c.SendNum, c.Attempts
ORDER BY c.Attempts DESC, c.SendNum`,
		h.Quoted, member, staff,
		d.Length("t.SendNum"), d.TimeOfDay("t.RecDT"),
		p[0], p[1], p[2], p[3], p[4])
}

// NoAnswers runs the correlation query against the staging relation. An
// empty result is valid.
func (s *Session) NoAnswers(ctx context.Context, h *StagingHandle, opts CorrelateOptions) ([]domain.NoAnswerRow, error) {
	args := []any{
		opts.MinSenderLength,
		opts.SuccessResult,
		opts.SuccessResult,
		opts.WindowStart,
		opts.WindowEnd,
	}

	rows, err := s.conn.QueryContext(ctx, s.noAnswerSQL(h), args...)
	if err != nil {
		return nil, apperrors.NewQueryError("run no-answer query", err).WithContext("identity", h.Identity)
	}
	defer rows.Close()

	var out []domain.NoAnswerRow
	for rows.Next() {
		var row domain.NoAnswerRow
		var attempts int64
		if err := rows.Scan(&row.Sender, &attempts, &row.Staff, &row.Member, &row.Result); err != nil {
			return nil, apperrors.NewQueryError("scan no-answer row", err)
		}
		row.Attempts = int(attempts)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryError("iterate no-answer rows", err)
	}

	s.logger.InfoContext(ctx, "no_answer_query_complete",
		slog.String("identity", h.Identity),
		slog.Int("rows", len(out)))
	return out, nil
}
