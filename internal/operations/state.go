package operations

import (
	"context"
	"time"

	"cdrcli/internal/cdr"
	"cdrcli/internal/store"
	"cdrcli/pkg/contracts/domain"
)

// Finalizer releases a resource acquired during a run
type Finalizer func(ctx context.Context) error

type namedFinalizer struct {
	name string
	fn   Finalizer
}

// RunState carries everything one run produces from stage to stage. It is
// owned by the goroutine executing the run.
type RunState struct {
	ID        string    `json:"id"`
	InputPath string    `json:"input_path"`
	Status    RunStatus `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Error     error     `json:"-"`

	Steps map[string]*StepState `json:"steps"`

	OutputDir    string               `json:"output_dir"`
	BusinessDate cdr.BusinessDate     `json:"business_date"`
	Records      []domain.CallRecord  `json:"-"`
	DB           *store.DB            `json:"-"`
	Session      *store.Session       `json:"-"`
	Staging      *store.StagingHandle `json:"-"`
	RowsStaged   int                  `json:"rows_staged"`
	NoAnswers    []domain.NoAnswerRow `json:"-"`
	ReportPath   string               `json:"report_path,omitempty"`
	LedgerRows   int64                `json:"ledger_rows"`

	finalizers []namedFinalizer
}

// NewRunState creates a pending run for inputPath
func NewRunState(id, inputPath string) *RunState {
	return &RunState{
		ID:        id,
		InputPath: inputPath,
		Status:    RunStatusPending,
		Steps:     make(map[string]*StepState),
	}
}

// Start marks the run as running
func (s *RunState) Start() {
	s.Status = RunStatusRunning
	s.StartTime = time.Now()
}

// Complete marks the run as done
func (s *RunState) Complete() {
	s.Status = RunStatusDone
	s.EndTime = time.Now()
}

// Fail marks the run as failed
func (s *RunState) Fail(err error) {
	s.Status = RunStatusFailed
	s.EndTime = time.Now()
	s.Error = err
}

// Duration returns the wall time of the run so far
func (s *RunState) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// SetStepState records the state of a step
func (s *RunState) SetStepState(stepID string, state *StepState) {
	s.Steps[stepID] = state
}

// GetStepState returns the state of a step, or nil
func (s *RunState) GetStepState(stepID string) *StepState {
	return s.Steps[stepID]
}

// AddFinalizer registers fn to run when the run ends, whatever the outcome.
// Finalizers run in reverse registration order.
func (s *RunState) AddFinalizer(name string, fn Finalizer) {
	s.finalizers = append(s.finalizers, namedFinalizer{name: name, fn: fn})
}

// takeFinalizers returns the finalizers in run order and clears them
func (s *RunState) takeFinalizers() []namedFinalizer {
	out := make([]namedFinalizer, 0, len(s.finalizers))
	for i := len(s.finalizers) - 1; i >= 0; i-- {
		out = append(out, s.finalizers[i])
	}
	s.finalizers = nil
	return out
}

// Summary returns the terminal outcome of the run
func (s *RunState) Summary() domain.RunSummary {
	summary := domain.RunSummary{
		RunID:        s.ID,
		InputPath:    s.InputPath,
		BusinessDate: s.BusinessDate.Date,
		RowsRead:     len(s.Records),
		RowsStaged:   s.RowsStaged,
		NoAnswers:    len(s.NoAnswers),
		LedgerRows:   s.LedgerRows,
		ReportPath:   s.ReportPath,
		Duration:     s.Duration(),
	}
	if s.Staging != nil {
		summary.StagingTable = s.Staging.Identity
	} else {
		summary.StagingTable = cdr.Stem(s.InputPath)
	}
	if s.Error != nil {
		summary.Error = RootMessage(s.Error)
	}
	return summary
}
