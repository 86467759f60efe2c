package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"cdrcli/internal/cdr"
	"cdrcli/internal/infrastructure"
	"cdrcli/internal/report"
	"cdrcli/internal/store"
	"cdrcli/internal/validation"
)

// Opener connects to the run database
type Opener func(ctx context.Context) (*store.DB, error)

// Dependencies are the collaborators the standard stages need
type Dependencies struct {
	Validator *validation.FileValidator
	Reader    *cdr.Reader
	Open      Opener
	Renderer  *report.Renderer
	BatchSize int
	Correlate store.CorrelateOptions
	// OutputDir overrides the report directory; empty writes beside the input
	OutputDir string
	Metrics   *infrastructure.RunMetrics
	Logger    *slog.Logger
}

// NewPipeline registers the standard stages in execution order
func NewPipeline(deps Dependencies) (*Registry, error) {
	if deps.Open == nil {
		return nil, fmt.Errorf("pipeline requires a database opener")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewFileValidator(deps.Logger)
	}
	if deps.Reader == nil {
		deps.Reader = cdr.NewReader(deps.Logger)
	}
	if deps.Renderer == nil {
		deps.Renderer = report.NewRenderer(report.Options{}, deps.Logger)
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = store.DefaultBatchSize
	}

	d := &deps
	registry := NewRegistry()
	for _, step := range []Step{
		&ValidateStage{NewBaseStage(StageValidate, "Validate input"), d},
		&ParseStage{NewBaseStage(StageParse, "Read call records"), d},
		&ConnectStage{NewBaseStage(StageConnect, "Connect to database"), d},
		&CreateStage{NewBaseStage(StageCreate, "Create staging table"), d},
		&LoadStage{NewBaseStage(StageLoad, "Load staging table"), d},
		&CorrelateStage{NewBaseStage(StageCorrelate, "Find unanswered senders"), d},
		&RenderStage{NewBaseStage(StageRender, "Write report"), d},
		&MergeStage{NewBaseStage(StageMergeLedger, "Append to ledger"), d},
		&DropStage{NewBaseStage(StageDrop, "Drop staging table"), d},
	} {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// ValidateStage checks the input and output locations and resolves the
// business date from the file name
type ValidateStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *ValidateStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	if err := s.deps.Validator.ValidateInputFile(state.InputPath); err != nil {
		return err
	}
	r.Progress(0.3)

	date, err := cdr.ResolveBusinessDate(state.InputPath)
	if err != nil {
		return err
	}
	state.BusinessDate = date
	r.Log("business date %s (file dated %s)", date, date.Nominal.Format("2006-01-02"))
	r.Progress(0.6)

	dir := validation.OutputDirFor(state.InputPath, s.deps.OutputDir)
	if err := s.deps.Validator.ValidateOutputDirectory(dir); err != nil {
		return err
	}
	state.OutputDir = dir
	return nil
}

// ParseStage reads and normalizes the CDR file
type ParseStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *ParseStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	records, err := s.deps.Reader.ReadFile(state.InputPath)
	if err != nil {
		return err
	}
	state.Records = records

	answered := 0
	for _, rec := range records {
		if rec.HasResult(s.deps.Correlate.SuccessResult) {
			answered++
		}
	}
	r.Log("read %d call records from %s (%d answered)", len(records), filepath.Base(state.InputPath), answered)
	return nil
}

// ConnectStage opens the database and pins one connection for the run
type ConnectStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *ConnectStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	db, err := s.deps.Open(ctx)
	if err != nil {
		return err
	}
	state.DB = db
	state.AddFinalizer("close_database", func(context.Context) error {
		return db.Close()
	})
	r.Progress(0.5)

	session, err := db.Session(ctx)
	if err != nil {
		return err
	}
	state.Session = session
	state.AddFinalizer("release_connection", func(context.Context) error {
		return session.Close()
	})

	r.Log("connected to %s database", db.Dialect().Name())
	return nil
}

// CreateStage drops and recreates the staging relation named after the
// input file
type CreateStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *CreateStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	handle, err := state.Session.PrepareStaging(ctx, cdr.Stem(state.InputPath))
	if err != nil {
		return err
	}
	state.Staging = handle
	state.AddFinalizer("drop_staging", func(ctx context.Context) error {
		return dropStaging(ctx, state)
	})

	r.Log("staging table %s ready", handle.Quoted)
	return nil
}

// LoadStage copies the parsed records into staging in committed batches
type LoadStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *LoadStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	n, err := state.Session.LoadStaging(ctx, state.Staging, state.Records, s.deps.BatchSize,
		func(loaded, total int) {
			r.Progress(float64(loaded) / float64(total))
			r.Log("staged %d/%d rows", loaded, total)
		})
	state.RowsStaged = n
	s.deps.Metrics.RecordRowsStaged(ctx, n)
	return err
}

// CorrelateStage runs the no-answer query
type CorrelateStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *CorrelateStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	rows, err := state.Session.NoAnswers(ctx, state.Staging, s.deps.Correlate)
	if err != nil {
		return err
	}
	state.NoAnswers = rows
	s.deps.Metrics.RecordNoAnswers(ctx, len(rows))

	r.Log("%d senders without an answered call", len(rows))
	return nil
}

// RenderStage writes the Excel report
type RenderStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *RenderStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	path, err := s.deps.Renderer.Render(state.NoAnswers, state.BusinessDate.Code(), state.OutputDir)
	if err != nil {
		return err
	}
	state.ReportPath = path

	r.Log("report written to %s", path)
	return nil
}

// MergeStage appends the staged rows to the permanent ledger
type MergeStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *MergeStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	staged, err := state.Session.CountStaged(ctx, state.Staging)
	if err != nil {
		s.deps.Logger.WarnContext(ctx, "staging_count_failed", slog.String("error", err.Error()))
		staged = int64(state.RowsStaged)
	}

	n, err := state.Session.MergeLedger(ctx, state.Staging)
	if err != nil {
		return err
	}
	state.LedgerRows = n
	s.deps.Metrics.RecordLedgerRows(ctx, n)

	if n != staged {
		s.deps.Logger.WarnContext(ctx, "ledger_count_mismatch",
			slog.Int64("staged", staged),
			slog.Int64("merged", n))
		r.Log("warning: %d rows staged but %d appended to the ledger", staged, n)
	}
	r.Log("appended %d rows to the ledger", n)
	return nil
}

// DropStage removes the staging relation. A failed drop is a warning.
type DropStage struct {
	BaseStage
	deps *Dependencies
}

// Execute implements Step
func (s *DropStage) Execute(ctx context.Context, state *RunState, r StageReporter) error {
	identity := cdr.Stem(state.InputPath)
	if err := dropStaging(ctx, state); err != nil {
		s.deps.Logger.WarnContext(ctx, "staging_drop_failed",
			slog.String("identity", identity),
			slog.String("error", err.Error()))
		r.Log("warning: %v", err)
		return nil
	}

	r.Log("staging table %s dropped", identity)
	return nil
}

// dropStaging makes one drop attempt per run. Later calls are no-ops.
func dropStaging(ctx context.Context, state *RunState) error {
	if state.Session == nil || state.Staging == nil {
		return nil
	}
	handle := state.Staging
	state.Staging = nil
	return state.Session.DropStaging(ctx, handle)
}
