package cmd

import (
	"fmt"
	"io"

	"cdrcli/internal/operations"
)

const clockLayout = "15:04:05"

// eventPrinter renders the run's event stream as timestamped lines
type eventPrinter struct {
	w io.Writer
}

func newEventPrinter(w io.Writer) *eventPrinter {
	return &eventPrinter{w: w}
}

// Print writes one event
func (p *eventPrinter) Print(e operations.Event) {
	ts := e.Time.Format(clockLayout)
	switch e.Kind {
	case operations.EventLog:
		fmt.Fprintf(p.w, "[%s] %3d%% %s\n", ts, e.Percent, e.Line)
	case operations.EventProgress:
		fmt.Fprintf(p.w, "[%s] %3d%% (%s)\n", ts, e.Percent, e.Stage)
	case operations.EventDone:
		fmt.Fprintf(p.w, "[%s] %3d%% done\n", ts, e.Percent)
	case operations.EventFailed:
		fmt.Fprintf(p.w, "[%s] %3d%% failed at %s: %s\n", ts, e.Percent, e.Stage, e.Line)
	}
}
