package core

import (
	"context"

	"fp51/sfr"
)

// Board ties the runtime components to one register bank
type Board struct {
	Bank   Bank
	Clock  *TickClock
	Serial *Serial
	IRQ    *DispatchTable

	config BoardConfig
}

// NewBoard builds the runtime on bank. Zero fields in cfg take their
// defaults.
func NewBoard(bank Bank, cfg BoardConfig) *Board {
	cfg.applyDefaults()

	clock := NewTickClock(bank, cfg.TickThreshold)
	return &Board{
		Bank:   bank,
		Clock:  clock,
		Serial: NewSerial(bank, clock, cfg.ReferenceClock),
		IRQ:    NewDispatchTable(bank),
		config: cfg,
	}
}

// Config returns the configuration the board was built with
func (b *Board) Config() BoardConfig {
	return b.config
}

// Begin opens the serial channel at the configured rate
func (b *Board) Begin() error {
	return b.Serial.Open(b.config.Rate)
}

// HandleInterrupt is the single entry point for every interrupt vector.
// Timer 1 drives the tick clock, the serial vector has no work since the
// channel is polled, and the rest go through the dispatch table.
func (b *Board) HandleInterrupt(v sfr.Vector) {
	switch v {
	case sfr.VectorTimer1:
		b.Clock.HandleTimerInterrupt()
	case sfr.VectorSerial:
	default:
		b.IRQ.Service(Source(v))
	}
}

// Attach installs a handler for src, see DispatchTable.Attach
func (b *Board) Attach(src Source, fn Handler) {
	b.IRQ.Attach(src, fn)
}

// Interrupts sets the global interrupt enable. There is no nesting count.
func (b *Board) Interrupts() {
	b.Bank.SetBit(sfr.EA, true)
}

// NoInterrupts clears the global interrupt enable
func (b *Board) NoInterrupts() {
	b.Bank.SetBit(sfr.EA, false)
}

// Critical runs fn with interrupts masked and restores the previous mask on
// every exit path, including a panic in fn.
func (b *Board) Critical(fn func()) {
	state := disableInterrupts(b.Bank)
	defer restoreInterrupts(b.Bank, state)

	fn()
}

// Sketch is a foreground program: Setup runs once, Loop runs forever
type Sketch interface {
	Setup(b *Board)
	Loop(b *Board)
}

// Run executes sketch on b until ctx is done
func Run(ctx context.Context, b *Board, sketch Sketch) error {
	sketch.Setup(b)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		sketch.Loop(b)
	}
}
