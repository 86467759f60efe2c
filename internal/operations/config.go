package operations

import (
	"time"
)

// DefaultConnectTimeout bounds connection setup
const DefaultConnectTimeout = 30 * time.Second

// Config represents the run execution configuration
type Config struct {
	// Progress band per stage ID
	Bands map[string]Band `json:"bands"`

	// Optional per-stage deadlines; zero means no deadline
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`
}

// NewConfig returns the default run configuration
func NewConfig() *Config {
	return &Config{
		Bands: DefaultBands(),
		StageTimeouts: map[string]time.Duration{
			StageConnect: DefaultConnectTimeout,
		},
	}
}

// BandFor returns the band of stageID, or an empty band at 0 for unknown
// stages
func (c *Config) BandFor(stageID string) Band {
	if c == nil || c.Bands == nil {
		return DefaultBands()[stageID]
	}
	return c.Bands[stageID]
}

// TimeoutFor returns the stage deadline or zero
func (c *Config) TimeoutFor(stageID string) time.Duration {
	if c == nil || c.StageTimeouts == nil {
		return 0
	}
	return c.StageTimeouts[stageID]
}
