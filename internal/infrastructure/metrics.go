package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Run statuses for cdr_runs_total
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RunMetrics are the batch-job instruments of one pipeline run. A nil
// *RunMetrics records nothing.
type RunMetrics struct {
	runs          metric.Int64Counter
	stageDuration metric.Float64Histogram
	rowsStaged    metric.Int64Counter
	noAnswerRows  metric.Int64Gauge
	ledgerRows    metric.Int64Counter
	heapBytes     metric.Int64Gauge
}

// NewRunMetrics registers the instruments on meter
func NewRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	runs, err := meter.Int64Counter(
		"cdr_runs",
		metric.WithDescription("Pipeline runs by terminal status"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"cdr_stage_duration",
		metric.WithDescription("Wall time per pipeline stage"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300),
	)
	if err != nil {
		return nil, err
	}

	rowsStaged, err := meter.Int64Counter(
		"cdr_rows_staged",
		metric.WithDescription("Call records committed to staging"),
	)
	if err != nil {
		return nil, err
	}

	noAnswerRows, err := meter.Int64Gauge(
		"cdr_no_answer_rows",
		metric.WithDescription("Rows in the last rendered no-answer report"),
	)
	if err != nil {
		return nil, err
	}

	ledgerRows, err := meter.Int64Counter(
		"cdr_ledger_rows",
		metric.WithDescription("Rows appended to the permanent ledger"),
	)
	if err != nil {
		return nil, err
	}

	heapBytes, err := meter.Int64Gauge(
		"cdr_run_heap",
		metric.WithDescription("Heap in use when the run finished"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		runs:          runs,
		stageDuration: stageDuration,
		rowsStaged:    rowsStaged,
		noAnswerRows:  noAnswerRows,
		ledgerRows:    ledgerRows,
		heapBytes:     heapBytes,
	}, nil
}

// RecordRun counts a finished run and samples heap usage
func (m *RunMetrics) RecordRun(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.heapBytes.Record(ctx, int64(ms.HeapInuse))
}

// RecordStage observes one stage duration
func (m *RunMetrics) RecordStage(ctx context.Context, stage string, d time.Duration, success bool) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("success", success),
	))
}

// RecordRowsStaged adds committed staging rows
func (m *RunMetrics) RecordRowsStaged(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.rowsStaged.Add(ctx, int64(n))
}

// RecordNoAnswers sets the report size gauge
func (m *RunMetrics) RecordNoAnswers(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.noAnswerRows.Record(ctx, int64(n))
}

// RecordLedgerRows adds rows appended to the ledger
func (m *RunMetrics) RecordLedgerRows(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.ledgerRows.Add(ctx, n)
}
