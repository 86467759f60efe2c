package operations

import (
	"context"
	"fmt"
	"log/slog"

	"cdrcli/internal/infrastructure"
	"cdrcli/pkg/contracts/domain"
)

// Manager executes the registered steps of one run in order
type Manager struct {
	registry *Registry
	config   *Config
	reporter *Reporter
	tracer   *RunTracer
	logger   *slog.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConfig overrides bands and stage timeouts
func WithConfig(cfg *Config) ManagerOption {
	return func(m *Manager) {
		if cfg != nil {
			m.config = cfg
		}
	}
}

// WithTracer attaches spans and run metrics
func WithTracer(tracer *RunTracer) ManagerOption {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager that reports through reporter
func NewManager(registry *Registry, reporter *Reporter, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: registry,
		config:   NewConfig(),
		reporter: reporter,
		tracer:   NewRunTracer(nil, nil),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(slog.String("component", "operations"))
	return m
}

// Run executes every step against state. On any outcome the registered
// finalizers run before the terminal event is sent and the reporter is
// closed. The returned error is an *OperationError.
func (m *Manager) Run(ctx context.Context, state *RunState) (domain.RunSummary, error) {
	defer m.reporter.Close()

	if state.ID == "" {
		state.ID = infrastructure.GenerateTraceID()
	}
	ctx = infrastructure.WithTraceID(ctx, state.ID)
	ctx, span := m.tracer.TraceRun(ctx, state)
	defer span.End()

	state.Start()
	m.logRunStart(ctx, state)

	err := m.executeSteps(ctx, state)
	m.runFinalizers(ctx, state)

	if err != nil {
		state.Fail(err)
		m.logRunError(ctx, state, err)
		m.reporter.finish(EventFailed, failedStep(err), RootMessage(err))
	} else {
		state.Complete()
		m.reporter.finish(EventDone, "", state.ReportPath)
	}

	m.tracer.RecordRunCompletion(ctx, span, state)
	m.logRunComplete(ctx, state)

	if err != nil {
		return state.Summary(), err
	}
	return state.Summary(), nil
}

func (m *Manager) executeSteps(ctx context.Context, state *RunState) *OperationError {
	for _, step := range m.registry.Steps() {
		if err := ctx.Err(); err != nil {
			return NewCancellationError(step.ID(), err)
		}

		stepState := NewStepState(step.ID(), step.Name())
		state.SetStepState(step.ID(), stepState)

		if err := m.executeStep(ctx, state, step, stepState); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) executeStep(ctx context.Context, state *RunState, step Step, stepState *StepState) *OperationError {
	id := step.ID()
	sr := m.reporter.ForStage(id, m.config.BandFor(id))

	stepCtx, span := m.tracer.TraceStage(ctx, state.ID, id)
	defer span.End()

	timeout := m.config.TimeoutFor(id)
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, timeout)
		defer cancel()
	}

	stepState.Start()
	m.logStageStart(stepCtx, state.ID, id)
	sr.Progress(0)

	if err := step.Execute(stepCtx, state, sr); err != nil {
		opErr := WrapError(err, id, timeout)
		stepState.Fail(opErr)
		m.tracer.RecordStageCompletion(stepCtx, span, id, stepState.Duration(), opErr)
		m.logStageError(stepCtx, state.ID, id, opErr)
		return opErr
	}

	stepState.Complete()
	sr.Progress(1)
	m.tracer.RecordStageCompletion(stepCtx, span, id, stepState.Duration(), nil)
	m.logStageComplete(stepCtx, state.ID, id, stepState.Duration())
	return nil
}

// runFinalizers releases run resources in reverse acquisition order.
// Failures are cleanup warnings: logged and reported, never returned.
func (m *Manager) runFinalizers(ctx context.Context, state *RunState) {
	for _, f := range state.takeFinalizers() {
		if err := f.fn(ctx); err != nil {
			m.logFinalizerWarning(ctx, state.ID, f.name, err)
			m.reporter.log("finalize", fmt.Sprintf("warning: %s: %v", f.name, err))
		}
	}
}

func failedStep(err *OperationError) string {
	if err == nil {
		return ""
	}
	return err.Step
}
