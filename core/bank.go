package core

import "fp51/sfr"

// Bank is the register bank the runtime drives. On hardware it maps to the
// SFR space; on the host it is a simulator or a test fake.
//
// Every component holds the Bank it was built with rather than reaching for
// package-level registers.
type Bank interface {
	// Bit reads a bit-addressable flag
	Bit(b sfr.Bit) bool
	// SetBit writes a bit-addressable flag
	SetBit(b sfr.Bit, v bool)

	// Reg reads a byte register
	Reg(r sfr.Reg) uint8
	// SetReg writes a byte register
	SetReg(r sfr.Reg, v uint8)

	// KickWatchdog restarts the hardware watchdog period
	KickWatchdog()

	// Nop burns one instruction cycle
	Nop()
}

// nopDelay burns n instruction cycles.
func nopDelay(bank Bank, n int) {
	for i := 0; i < n; i++ {
		bank.Nop()
	}
}
