package operations

import (
	"context"
	"log/slog"
	"time"
)

// logRunStart logs the start of a run
func (m *Manager) logRunStart(ctx context.Context, state *RunState) {
	m.logger.InfoContext(ctx, "run_start",
		slog.String("run_id", state.ID),
		slog.String("input", state.InputPath),
		slog.Int("stages", m.registry.Count()))
}

// logRunComplete logs the terminal status of a run
func (m *Manager) logRunComplete(ctx context.Context, state *RunState) {
	m.logger.InfoContext(ctx, "run_complete",
		slog.String("run_id", state.ID),
		slog.String("status", string(state.Status)),
		slog.Int("rows_staged", state.RowsStaged),
		slog.Int("no_answers", len(state.NoAnswers)),
		slog.Int64("ledger_rows", state.LedgerRows),
		slog.String("report", state.ReportPath),
		slog.Duration("duration", state.Duration()))
}

// logRunError logs a run failure
func (m *Manager) logRunError(ctx context.Context, state *RunState, err error) {
	m.logger.ErrorContext(ctx, "run_error",
		slog.String("run_id", state.ID),
		slog.String("error_type", string(GetErrorType(err))),
		slog.String("error", err.Error()))
}

// logStageStart logs the start of a stage
func (m *Manager) logStageStart(ctx context.Context, runID, stageID string) {
	m.logger.InfoContext(ctx, "stage_start",
		slog.String("run_id", runID),
		slog.String("stage", stageID))
}

// logStageComplete logs the completion of a stage
func (m *Manager) logStageComplete(ctx context.Context, runID, stageID string, duration time.Duration) {
	m.logger.InfoContext(ctx, "stage_complete",
		slog.String("run_id", runID),
		slog.String("stage", stageID),
		slog.Duration("duration", duration))
}

// logStageError logs a stage error
func (m *Manager) logStageError(ctx context.Context, runID, stageID string, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	m.logger.ErrorContext(ctx, "stage_error",
		slog.String("run_id", runID),
		slog.String("stage", stageID),
		slog.String("error", errorMsg))
}

func (m *Manager) logFinalizerWarning(ctx context.Context, runID, name string, err error) {
	m.logger.WarnContext(ctx, "finalizer_failed",
		slog.String("run_id", runID),
		slog.String("finalizer", name),
		slog.String("error", err.Error()))
}
