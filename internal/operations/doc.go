// Package operations runs the daily CDR pipeline as a fixed sequence of
// steps over a shared RunState.
//
// Core Components:
//
// Manager: executes the registered steps in order, owns the progress
// percentage and runs every registered finalizer (staging drop, connection
// release) before the terminal event, on success and failure alike.
//
// Step: a single unit of work. Steps never print; they talk to the operator
// through the StageReporter they are handed, reporting fractions of their
// own progress band.
//
// Reporter: turns stage reports into an Event stream with append-only log
// lines and a non-decreasing 0-100 percentage. The stream closes after the
// done or failed event.
//
// Example usage:
//
//	registry, err := operations.NewPipeline(operations.Dependencies{
//		Open:      opener,
//		Correlate: store.DefaultCorrelateOptions(),
//	})
//	reporter := operations.NewReporter(operations.DefaultEventBuffer, logger)
//	manager := operations.NewManager(registry, reporter, operations.WithLogger(logger))
//
//	go operations.Drain(reporter.Events(), printEvent)
//	summary, err := manager.Run(ctx, operations.NewRunState("", "CDR-25120900.csv"))
package operations
