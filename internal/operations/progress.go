package operations

import (
	"math"
	"sync"
)

// Band is the slice of the overall 0-100 range owned by one stage
type Band struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// At maps a stage-local fraction onto the band. Fractions are clamped to
// [0, 1].
func (b Band) At(fraction float64) int {
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return b.Start + int(math.Floor(float64(b.End-b.Start)*fraction))
}

// DefaultBands returns the progress bands of the standard pipeline
func DefaultBands() map[string]Band {
	return map[string]Band{
		StageValidate:    {Start: 0, End: 10},
		StageParse:       {Start: 10, End: 20},
		StageConnect:     {Start: 20, End: 25},
		StageCreate:      {Start: 25, End: 30},
		StageLoad:        {Start: 30, End: 50},
		StageCorrelate:   {Start: 50, End: 60},
		StageRender:      {Start: 60, End: 75},
		StageMergeLedger: {Start: 75, End: 90},
		StageDrop:        {Start: 90, End: 100},
	}
}

// ProgressTracker holds the run percentage. It only moves forward.
type ProgressTracker struct {
	mu      sync.Mutex
	percent int
}

// NewProgressTracker creates a tracker at 0%
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// Advance moves the percentage to target if that is forward progress and
// reports whether it changed. Targets are capped at 100.
func (p *ProgressTracker) Advance(target int) (int, bool) {
	if target > 100 {
		target = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if target <= p.percent {
		return p.percent, false
	}
	p.percent = target
	return p.percent, true
}

// Percent returns the current percentage
func (p *ProgressTracker) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}
