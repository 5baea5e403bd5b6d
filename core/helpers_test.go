package core

import (
	"testing"

	"fp51/sfr"
	"fp51/sim"
)

// testRate gives a small rate factor (96) so timer periods are short
const testRate = 1000000

// fakeBank is a register bank with no peripherals behind it
type fakeBank struct {
	bits  [sfr.NumBits]bool
	regs  [sfr.NumRegs]uint8
	kicks int
	nops  int
	log   []sfr.Bit // every SetBit, in order
}

func (f *fakeBank) Bit(b sfr.Bit) bool        { return f.bits[b] }
func (f *fakeBank) SetBit(b sfr.Bit, v bool)  { f.bits[b] = v; f.log = append(f.log, b) }
func (f *fakeBank) Reg(r sfr.Reg) uint8       { return f.regs[r] }
func (f *fakeBank) SetReg(r sfr.Reg, v uint8) { f.regs[r] = v }
func (f *fakeBank) KickWatchdog()             { f.kicks++ }
func (f *fakeBank) Nop()                      { f.nops++ }

// newSimBoard returns a board wired to a fresh simulated machine
func newSimBoard(t *testing.T, cfg sim.Config) (*Board, *sim.Machine) {
	t.Helper()
	if cfg.MaxCycles == 0 {
		cfg.MaxCycles = 50_000_000
	}
	m := sim.New(cfg)
	b := NewBoard(m, DefaultBoardConfig())
	m.SetInterruptHandler(b.HandleInterrupt)
	return b, m
}

// newOpenBoard returns a simulated board with the serial channel open at
// testRate
func newOpenBoard(t *testing.T, cfg sim.Config) (*Board, *sim.Machine) {
	t.Helper()
	b, m := newSimBoard(t, cfg)
	if err := b.Serial.Open(testRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return b, m
}

// coarseCycles is the length of one coarse tick at testRate in machine cycles
func coarseCycles() uint64 {
	return uint64(DefaultTickThreshold) * uint64(ReferenceClock/testRate)
}
