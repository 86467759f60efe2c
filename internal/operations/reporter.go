package operations

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultEventBuffer is the event channel capacity used by NewReporter
const DefaultEventBuffer = 64

// Reporter fans stage progress out to a single consumer. A Reporter serves
// one run; the manager closes it when the run ends.
type Reporter struct {
	events  chan Event
	tracker *ProgressTracker
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	closed bool
}

// NewReporter creates a reporter with the given channel capacity. Sends
// block once the buffer is full, so the consumer must drain Events.
func NewReporter(buffer int, logger *slog.Logger) *Reporter {
	if buffer < 0 {
		buffer = DefaultEventBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		events:  make(chan Event, buffer),
		tracker: NewProgressTracker(),
		logger:  logger.With(slog.String("component", "reporter")),
		now:     time.Now,
	}
}

// Events returns the event stream. It is closed after the terminal event.
func (r *Reporter) Events() <-chan Event {
	return r.events
}

// Percent returns the current run percentage
func (r *Reporter) Percent() int {
	return r.tracker.Percent()
}

// Close closes the event stream. Further events are dropped.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
}

func (r *Reporter) send(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.events <- e
}

func (r *Reporter) log(stage, line string) {
	r.logger.Debug("pipeline_log",
		slog.String("stage", stage),
		slog.String("line", line))
	r.send(Event{
		Time:    r.now(),
		Kind:    EventLog,
		Stage:   stage,
		Line:    line,
		Percent: r.tracker.Percent(),
	})
}

func (r *Reporter) advance(stage string, target int) {
	percent, changed := r.tracker.Advance(target)
	if !changed {
		return
	}
	r.send(Event{
		Time:    r.now(),
		Kind:    EventProgress,
		Stage:   stage,
		Percent: percent,
	})
}

func (r *Reporter) finish(kind EventKind, stage, line string) {
	percent := r.tracker.Percent()
	if kind == EventDone {
		percent, _ = r.tracker.Advance(100)
	}
	r.send(Event{
		Time:    r.now(),
		Kind:    kind,
		Stage:   stage,
		Line:    line,
		Percent: percent,
	})
}

// ForStage returns the capability handed to one stage
func (r *Reporter) ForStage(stage string, band Band) StageReporter {
	return &stageReporter{reporter: r, stage: stage, band: band}
}

type stageReporter struct {
	reporter *Reporter
	stage    string
	band     Band
}

func (s *stageReporter) Log(format string, args ...any) {
	s.reporter.log(s.stage, fmt.Sprintf(format, args...))
}

func (s *stageReporter) Progress(fraction float64) {
	s.reporter.advance(s.stage, s.band.At(fraction))
}

// Drain hands every event to fn until the stream closes. Consumers must
// keep draining until then or the run blocks.
func Drain(events <-chan Event, fn func(Event)) {
	for e := range events {
		if fn != nil {
			fn(e)
		}
	}
}
