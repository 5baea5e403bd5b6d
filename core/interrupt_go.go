//go:build !tinygo

package core

import "fp51/sfr"

// State is the interrupt state saved by disableInterrupts
type State struct {
	ea bool
}

// disableInterrupts clears EA and returns the previous state
func disableInterrupts(bank Bank) State {
	st := State{ea: bank.Bit(sfr.EA)}
	bank.SetBit(sfr.EA, false)
	return st
}

// restoreInterrupts puts EA back the way disableInterrupts found it
func restoreInterrupts(bank Bank, state State) {
	bank.SetBit(sfr.EA, state.ea)
}
