package core

// Reference clock for the FP51 core
const (
	ReferenceClock = 96000000 // 96MHz CPU clock feeding timer 1
	DefaultRate    = 115200
)

// DefaultRateFactor is the clock rate factor before the serial channel is
// opened (96e6 / 115200)
const DefaultRateFactor = ReferenceClock / DefaultRate

// BoardConfig holds the runtime configuration of a board
type BoardConfig struct {
	// ReferenceClock is the timer input clock in Hz
	ReferenceClock uint32

	// TickThreshold is the number of fine ticks per coarse tick
	TickThreshold uint8

	// Rate is the serial rate used by Board.Begin
	Rate uint32
}

// DefaultBoardConfig returns the configuration of the reference FP51 board
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		ReferenceClock: ReferenceClock,
		TickThreshold:  DefaultTickThreshold,
		Rate:           DefaultRate,
	}
}

// applyDefaults fills in zero fields
func (c *BoardConfig) applyDefaults() {
	if c.ReferenceClock == 0 {
		c.ReferenceClock = ReferenceClock
	}
	if c.TickThreshold == 0 {
		c.TickThreshold = DefaultTickThreshold
	}
	if c.Rate == 0 {
		c.Rate = DefaultRate
	}
}
