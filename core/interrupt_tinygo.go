//go:build tinygo

package core

import (
	"fp51/sfr"
	"runtime/interrupt"
)

// State is the interrupt state saved by disableInterrupts
type State struct {
	ea  bool
	cpu interrupt.State
}

// disableInterrupts masks the CPU and clears EA, returning the previous state
func disableInterrupts(bank Bank) State {
	st := State{cpu: interrupt.Disable()}
	st.ea = bank.Bit(sfr.EA)
	bank.SetBit(sfr.EA, false)
	return st
}

// restoreInterrupts restores EA and then the CPU mask
func restoreInterrupts(bank Bank, state State) {
	bank.SetBit(sfr.EA, state.ea)
	interrupt.Restore(state.cpu)
}
