package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"cdrcli/internal/infrastructure"
)

// TracerName names the run tracer
const TracerName = "cdrcli.operation"

// RunTracer wraps spans and metrics for one pipeline run
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.RunMetrics
}

// NewRunTracer creates a run tracer. A nil tracer records no spans and nil
// metrics record nothing.
func NewRunTracer(tracer trace.Tracer, metrics *infrastructure.RunMetrics) *RunTracer {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(TracerName)
	}
	return &RunTracer{tracer: tracer, metrics: metrics}
}

// TraceRun starts the span of the whole run
func (rt *RunTracer) TraceRun(ctx context.Context, state *RunState) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "cdr_run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", state.ID),
			attribute.String("run.input", state.InputPath),
		),
	)
}

// TraceStage starts a child span for one stage
func (rt *RunTracer) TraceStage(ctx context.Context, runID, stageID string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "cdr_stage."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.id", stageID),
		),
	)
}

// RecordStageCompletion closes out a stage span and observes its duration
func (rt *RunTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stageID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("stage.duration_seconds", duration.Seconds()))
	if err != nil {
		infrastructure.RecordError(ctx, err)
		span.SetStatus(codes.Error, RootMessage(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	rt.metrics.RecordStage(ctx, stageID, duration, err == nil)
}

// RecordRunCompletion closes out the run span and counts the run
func (rt *RunTracer) RecordRunCompletion(ctx context.Context, span trace.Span, state *RunState) {
	span.SetAttributes(
		attribute.String("run.status", string(state.Status)),
		attribute.Int("run.rows_staged", state.RowsStaged),
		attribute.Int("run.no_answers", len(state.NoAnswers)),
		attribute.Int64("run.ledger_rows", state.LedgerRows),
	)

	status := infrastructure.RunStatusSuccess
	if state.Error != nil {
		status = infrastructure.RunStatusFailed
		infrastructure.RecordError(ctx, state.Error)
		span.SetStatus(codes.Error, RootMessage(state.Error))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	rt.metrics.RecordRun(ctx, status)
}
