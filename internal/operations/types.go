package operations

import "time"

// Stage IDs in execution order
const (
	StageValidate    = "validate"
	StageParse       = "parse"
	StageConnect     = "connect"
	StageCreate      = "stage_create"
	StageLoad        = "stage_load"
	StageCorrelate   = "correlate"
	StageRender      = "render"
	StageMergeLedger = "merge_ledger"
	StageDrop        = "stage_drop"
)

// StageOrder lists the pipeline stages in the order they run
var StageOrder = []string{
	StageValidate,
	StageParse,
	StageConnect,
	StageCreate,
	StageLoad,
	StageCorrelate,
	StageRender,
	StageMergeLedger,
	StageDrop,
}

// RunStatus represents the lifecycle of one run
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

// IsTerminal reports whether the run has finished
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusDone || s == RunStatusFailed
}

// EventKind classifies reporter events
type EventKind string

const (
	EventLog      EventKind = "log"
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventFailed   EventKind = "failed"
)

// Event is one entry on the run's progress stream. Log lines are
// append-only and Percent never decreases across a run.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	Stage   string    `json:"stage,omitempty"`
	Line    string    `json:"line,omitempty"`
	Percent int       `json:"percent"`
}

// IsTerminal reports whether e ends the stream
func (e Event) IsTerminal() bool {
	return e.Kind == EventDone || e.Kind == EventFailed
}
