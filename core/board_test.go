package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fp51/sfr"
	"fp51/sim"
)

func TestNewBoardAppliesDefaults(t *testing.T) {
	b := NewBoard(&fakeBank{}, BoardConfig{})
	assert.Equal(t, DefaultBoardConfig(), b.Config())
	assert.Equal(t, uint8(DefaultTickThreshold), b.Clock.Threshold())
	assert.Equal(t, uint32(DefaultRateFactor), b.Serial.RateFactor())
}

func TestBeginOpensAtConfiguredRate(t *testing.T) {
	cfg := DefaultBoardConfig()
	cfg.Rate = 9600
	b := NewBoard(&fakeBank{}, cfg)

	require.NoError(t, b.Begin())
	assert.True(t, b.Serial.IsOpen())
	assert.Equal(t, uint32(10000), b.Serial.RateFactor())
}

func TestHandleInterruptRouting(t *testing.T) {
	bank := &fakeBank{}
	b := NewBoard(bank, DefaultBoardConfig())

	adc := 0
	b.Attach(ADC, func() { adc++ })

	b.HandleInterrupt(sfr.VectorTimer1)
	assert.Equal(t, 1, bank.kicks)
	assert.Equal(t, uint8(1), b.Clock.Fine())

	b.HandleInterrupt(sfr.VectorSerial)
	b.HandleInterrupt(sfr.VectorINT0)
	assert.Zero(t, adc)

	b.HandleInterrupt(sfr.VectorADC)
	assert.Equal(t, 1, adc)
	assert.Equal(t, 1, bank.kicks)
}

func TestInterruptsAndNoInterrupts(t *testing.T) {
	bank := &fakeBank{}
	b := NewBoard(bank, DefaultBoardConfig())

	b.Interrupts()
	assert.True(t, bank.bits[sfr.EA])
	b.Interrupts()
	b.NoInterrupts()
	assert.False(t, bank.bits[sfr.EA], "no nesting count")
}

func TestCriticalRestoresState(t *testing.T) {
	for _, ea := range []bool{true, false} {
		bank := &fakeBank{}
		bank.bits[sfr.EA] = ea
		b := NewBoard(bank, DefaultBoardConfig())

		masked := true
		b.Critical(func() { masked = !bank.bits[sfr.EA] })
		assert.True(t, masked)
		assert.Equal(t, ea, bank.bits[sfr.EA])

		assert.Panics(t, func() {
			b.Critical(func() { panic("boom") })
		})
		assert.Equal(t, ea, bank.bits[sfr.EA], "restored after panic")
	}
}

type countingSketch struct {
	setups int
	loops  int
	stopAt int
	cancel context.CancelFunc
}

func (s *countingSketch) Setup(b *Board) { s.setups++ }

func (s *countingSketch) Loop(b *Board) {
	s.loops++
	if s.loops == s.stopAt {
		s.cancel()
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sketch := &countingSketch{stopAt: 3, cancel: cancel}
	err := Run(ctx, NewBoard(&fakeBank{}, DefaultBoardConfig()), sketch)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sketch.setups)
	assert.Equal(t, 3, sketch.loops)
}

func TestRunCancelledBeforeLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sketch := &countingSketch{}
	err := Run(ctx, NewBoard(&fakeBank{}, DefaultBoardConfig()), sketch)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sketch.setups)
	assert.Zero(t, sketch.loops)
}

func TestTimerInterruptFeedsWatchdog(t *testing.T) {
	b, m := newOpenBoard(t, sim.Config{WatchdogCycles: 5 * 96})

	m.Run(200000)
	assert.Zero(t, m.Resets())
	assert.Greater(t, b.Clock.Coarse(), uint32(0))

	b.NoInterrupts()
	m.Run(1000)
	assert.GreaterOrEqual(t, m.Resets(), 1)
	assert.False(t, m.Bit(sfr.TR1), "reset stops timer 1")
}
