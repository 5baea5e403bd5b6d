package core

import "fp51/sfr"

// DefaultTickThreshold is the number of timer periods per coarse tick
const DefaultTickThreshold = 127

// TickClock is the runtime time base. The fine counter advances on every
// timer 1 overflow; the coarse counter advances once every threshold fine
// ticks. Both are written only by HandleTimerInterrupt.
type TickClock struct {
	bank      Bank
	threshold uint8
	fine      uint8
	coarse    uint32
}

// NewTickClock creates a tick clock on bank. A zero threshold selects
// DefaultTickThreshold.
func NewTickClock(bank Bank, threshold uint8) *TickClock {
	if threshold == 0 {
		threshold = DefaultTickThreshold
	}
	return &TickClock{bank: bank, threshold: threshold}
}

// HandleTimerInterrupt is the timer 1 service routine.
// The watchdog kick must stay first and unconditional.
func (c *TickClock) HandleTimerInterrupt() {
	c.bank.KickWatchdog()

	c.fine++
	if c.fine == c.threshold {
		c.fine = 0
		storeCoarse(&c.coarse, loadCoarse(&c.coarse)+1)
	}
}

// Coarse returns a consistent snapshot of the coarse counter
func (c *TickClock) Coarse() uint32 {
	state := disableInterrupts(c.bank)
	defer restoreInterrupts(c.bank, state)

	return loadCoarse(&c.coarse)
}

// Fine returns the fine counter. Only meaningful to tests and diagnostics.
func (c *TickClock) Fine() uint8 {
	state := disableInterrupts(c.bank)
	defer restoreInterrupts(c.bank, state)

	return c.fine
}

// Threshold returns the fine ticks per coarse tick
func (c *TickClock) Threshold() uint8 {
	return c.threshold
}

// PollResult tells Poll what to do after a callback
type PollResult uint8

const (
	PollContinue PollResult = iota // keep waiting
	PollRearm                      // progress made, refill the budget
	PollDone                       // condition met, stop
)

// Poll busy-waits for up to budget coarse periods, timed by the timer 1
// overflow flag. fn runs on every spin of the inner loop and once more at the
// end of each timer period. Poll reports whether fn returned PollDone before
// the budget ran out. A zero budget returns false without calling fn.
func (c *TickClock) Poll(budget uint32, fn func() PollResult) bool {
	remaining := budget
	var fine uint8

	for remaining > 0 {
		c.bank.SetBit(sfr.TF1, false)
		for !c.bank.Bit(sfr.TF1) {
			switch fn() {
			case PollDone:
				return true
			case PollRearm:
				remaining = budget
			}
		}

		switch fn() {
		case PollDone:
			return true
		case PollRearm:
			remaining = budget
		}

		fine++
		if fine == c.threshold {
			fine = 0
			remaining--
		}
	}
	return false
}
