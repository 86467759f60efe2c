package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cdrcli/internal/errors"
	"cdrcli/pkg/contracts/domain"
)

func stage(t *testing.T, session *Session, rows []domain.CallRecord) *StagingHandle {
	t.Helper()
	ctx := context.Background()
	h, err := session.PrepareStaging(ctx, "CDR-25120900")
	require.NoError(t, err)
	_, err = session.LoadStaging(ctx, h, rows, DefaultBatchSize, nil)
	require.NoError(t, err)
	return h
}

func senders(rows []domain.NoAnswerRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Sender
	}
	return out
}

func TestNoAnswers_SymmetricSuccessExclusion(t *testing.T) {
	session := newTestSession(t)
	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 10:00:00", "01011110000", "01022220000", "Success"),
		call("2025-12-08 10:05:00", "01011110000", "01099990000", "NoAnswer"),
		call("2025-12-08 10:10:00", "01022220000", "01099990000", "NoAnswer"),
		call("2025-12-08 10:15:00", "01033330000", "01099990000", "NoAnswer"),
	})

	rows, err := session.NoAnswers(context.Background(), h, DefaultCorrelateOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"01033330000"}, senders(rows),
		"successful sender and successful receiver are both excluded")
}

func TestNoAnswers_NullReceiverOnSuccessRowDoesNotHideEveryone(t *testing.T) {
	session := newTestSession(t)
	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 10:00:00", "01011110000", "", "Success"),
		call("2025-12-08 10:15:00", "01033330000", "01099990000", "NoAnswer"),
	})

	rows, err := session.NoAnswers(context.Background(), h, DefaultCorrelateOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"01033330000"}, senders(rows))
}

func TestNoAnswers_LengthFilter(t *testing.T) {
	session := newTestSession(t)
	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 10:00:00", "0101234567", "0212345678", "NoAnswer"),
		call("2025-12-08 10:00:00", "01012345678", "0212345678", "NoAnswer"),
	})

	rows, err := session.NoAnswers(context.Background(), h, DefaultCorrelateOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"01012345678"}, senders(rows), "ten digit numbers are excluded")
}

func TestNoAnswers_LengthIgnoresTrailingSpaces(t *testing.T) {
	session := newTestSession(t)
	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 10:00:00", "0101234567  ", "0212345678", "NoAnswer"),
		call("2025-12-08 10:00:00", " 0101234567", "0212345678", "NoAnswer"),
	})

	rows, err := session.NoAnswers(context.Background(), h, DefaultCorrelateOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{" 0101234567"}, senders(rows), "padding counts only when it leads")
}

func TestNoAnswers_BusinessHoursWindow(t *testing.T) {
	session := newTestSession(t)
	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 09:29:59", "01000000001", "0212345678", "NoAnswer"),
		call("2025-12-08 09:30:00", "01000000002", "0212345678", "NoAnswer"),
		call("2025-12-08 17:59:59", "01000000003", "0212345678", "NoAnswer"),
		call("2025-12-08 18:00:00", "01000000004", "0212345678", "NoAnswer"),
		call("", "01000000005", "0212345678", "NoAnswer"),
	})

	rows, err := session.NoAnswers(context.Background(), h, DefaultCorrelateOptions())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"01000000002", "01000000003"}, senders(rows))
}

func TestNoAnswers_AttemptsCountAllRowsAndSortDescending(t *testing.T) {
	session := newTestSession(t)
	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 08:00:00", "01077770000", "0212345678", "NoAnswer"),
		call("2025-12-08 11:00:00", "01077770000", "0212345678", "NoAnswer"),
		call("2025-12-08 19:00:00", "01077770000", "0212345678", "Busy"),
		call("2025-12-08 12:00:00", "01088880000", "0212345678", "NoAnswer"),
	})

	rows, err := session.NoAnswers(context.Background(), h, DefaultCorrelateOptions())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "01077770000", rows[0].Sender)
	assert.Equal(t, 3, rows[0].Attempts, "attempts are not window filtered")
	assert.Equal(t, "NoAnswer", rows[0].Result, "result comes from a row inside the window")
	assert.Equal(t, "01088880000", rows[1].Sender)
	assert.Equal(t, 1, rows[1].Attempts)
}

func TestNoAnswers_DirectoryJoins(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	_, err := session.conn.ExecContext(ctx, `
		INSERT INTO Member (Mobile, Name, Charge_IDP) VALUES ('010-3333-0000', '홍길동', 'S01'), ('010-4444-0000', '김철수', 'S99');
		INSERT INTO Staff (SaBun, SaName) VALUES ('S01', '이담당');`)
	require.NoError(t, err)

	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 10:00:00", "01033330000", "0212345678", "NoAnswer"),
		call("2025-12-08 10:00:00", "01033330000", "0212345678", "NoAnswer"),
		call("2025-12-08 10:00:00", "01044440000", "0212345678", "NoAnswer"),
		call("2025-12-08 10:00:00", "01055550000", "0212345678", "NoAnswer"),
	})

	rows, err := session.NoAnswers(ctx, h, DefaultCorrelateOptions())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	bySender := make(map[string]domain.NoAnswerRow)
	for _, r := range rows {
		bySender[r.Sender] = r
	}
	assert.Equal(t, domain.NoAnswerRow{Sender: "01033330000", Attempts: 2, Staff: "이담당", Member: "홍길동", Result: "NoAnswer"}, bySender["01033330000"])
	assert.Equal(t, "", bySender["01044440000"].Staff, "unknown staff id renders empty")
	assert.Equal(t, "김철수", bySender["01044440000"].Member)
	assert.Equal(t, "", bySender["01055550000"].Member, "unknown member renders empty")
}

func TestNoAnswers_SenderAppearsOnce(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	_, err := session.conn.ExecContext(ctx, `
		INSERT INTO Member (Mobile, Name, Charge_IDP) VALUES ('010-3333-0000', 'A', 'S01'), ('01033330000', 'B', 'S01');`)
	require.NoError(t, err)

	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 10:00:00", "01033330000", "0212345678", "NoAnswer"),
		call("2025-12-08 11:00:00", "01033330000", "0212345678", "Busy"),
	})

	rows, err := session.NoAnswers(ctx, h, DefaultCorrelateOptions())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Attempts)
}

func TestNoAnswers_EmptyResult(t *testing.T) {
	session := newTestSession(t)
	h := stage(t, session, []domain.CallRecord{
		call("2025-12-08 10:00:00", "01011110000", "01022220000", "Success"),
	})

	rows, err := session.NoAnswers(context.Background(), h, DefaultCorrelateOptions())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNoAnswers_QueryError(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	h := stage(t, session, nil)
	require.NoError(t, session.DropStaging(ctx, h))

	_, err := session.NoAnswers(ctx, h, DefaultCorrelateOptions())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeQuery))
}
