package core

// timeBase converts coarse ticks to elapsed time. A coarse tick lasts
// threshold * factor reference clock cycles, so its length changes whenever
// Open picks a new rate factor. Time already elapsed is folded into base at
// that point so the reported time never jumps back.
type timeBase struct {
	clock          *TickClock
	referenceClock uint64

	base   uint64 // reference cycles elapsed before mark
	mark   uint32 // coarse count at the last rate change
	period uint64 // reference cycles per coarse tick
}

func newTimeBase(clock *TickClock, referenceClock, factor uint32) *timeBase {
	return &timeBase{
		clock:          clock,
		referenceClock: uint64(referenceClock),
		period:         uint64(clock.Threshold()) * uint64(factor),
	}
}

// setFactor closes the current period at the old factor and starts a new
// one at factor
func (t *timeBase) setFactor(factor uint32) {
	now := t.clock.Coarse()
	t.base += uint64(now-t.mark) * t.period
	t.mark = now
	t.period = uint64(t.clock.Threshold()) * uint64(factor)
}

// cycles returns the reference clock cycles elapsed since reset, to the
// last whole coarse tick
func (t *timeBase) cycles() uint64 {
	now := t.clock.Coarse()
	return t.base + uint64(now-t.mark)*t.period
}

// ticks converts a duration in units of 1/perSecond s to whole coarse ticks
// at the current factor
func (t *timeBase) ticks(n uint32, perSecond uint64) uint32 {
	return uint32(uint64(n) * t.referenceClock / (perSecond * t.period))
}

// Millis returns the milliseconds elapsed since reset. The result wraps after
// 2^32 ms.
func (b *Board) Millis() uint32 {
	return uint32(b.Serial.time.cycles() * 1000 / b.Serial.time.referenceClock)
}

// Micros returns the microseconds elapsed since reset. The result wraps after
// 2^32 us, a little over 71 minutes.
func (b *Board) Micros() uint32 {
	return uint32(b.Serial.time.cycles() * 1000000 / b.Serial.time.referenceClock)
}

// Delay busy-waits for roughly ms milliseconds
func (b *Board) Delay(ms uint32) {
	b.Clock.Poll(b.Serial.time.ticks(ms, 1000), func() PollResult {
		return PollContinue
	})
}

// DelayMicroseconds busy-waits for roughly us microseconds. Waits shorter
// than one coarse tick return immediately.
func (b *Board) DelayMicroseconds(us uint32) {
	b.Clock.Poll(b.Serial.time.ticks(us, 1000000), func() PollResult {
		return PollContinue
	})
}
