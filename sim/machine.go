// Package sim is a hosted model of the FP51 peripherals the runtime uses:
// timer 1 with reload, a polled UART, the interrupt controller and the
// watchdog. Time advances only when the program touches the register bank,
// so a run is fully deterministic and needs no goroutines.
package sim

import (
	"errors"

	"fp51/sfr"
)

// ErrCycleLimit is the panic value raised when Config.MaxCycles is exceeded
var ErrCycleLimit = errors.New("sim: cycle limit exceeded")

// Context is the CPU state an interrupt must preserve for the code it
// interrupts
type Context struct {
	ACC, B, PSW, DPL, DPH uint8
	R                     [8]uint8
}

type rxByte struct {
	at   uint64
	data byte
}

// Machine is a simulated FP51. It implements core.Bank.
type Machine struct {
	cfg Config

	bits [sfr.NumBits]bool
	regs [sfr.NumRegs]uint8

	cycle uint64

	// timer 1
	timer  uint16
	reload uint16

	// UART: SBUF is two registers, one per direction
	rxBuf    byte
	rxQueue  []rxByte
	rxLast   uint64
	txBusy   bool
	txByte   byte
	txDoneAt uint64
	output   []byte

	// interrupt controller
	handler  func(sfr.Vector)
	pending  [sfr.NumVectors]bool
	inISR    bool
	cpu      Context
	stack    []Context
	serviced [sfr.NumVectors]int

	// watchdog
	lastKick uint64
	resets   int

	// OnTransmit, when set, sees every byte as it leaves the transmitter
	OnTransmit func(byte)

	// OnReset, when set, runs after a watchdog reset
	OnReset func()
}

// New creates a machine in its power-on state
func New(cfg Config) *Machine {
	applyDefaults(&cfg)
	return &Machine{cfg: cfg}
}

// SetInterruptHandler installs the function that receives every serviced
// interrupt vector
func (m *Machine) SetInterruptHandler(fn func(sfr.Vector)) {
	m.handler = fn
}

// Cycle returns the current machine cycle
func (m *Machine) Cycle() uint64 {
	return m.cycle
}

// Bit implements core.Bank
func (m *Machine) Bit(b sfr.Bit) bool {
	m.step()
	return m.bits[b]
}

// SetBit implements core.Bank
func (m *Machine) SetBit(b sfr.Bit, v bool) {
	m.bits[b] = v
	m.step()
}

// Reg implements core.Bank
func (m *Machine) Reg(r sfr.Reg) uint8 {
	m.step()
	if r == sfr.SBUF {
		return m.rxBuf
	}
	return m.regs[r]
}

// SetReg implements core.Bank
func (m *Machine) SetReg(r sfr.Reg, v uint8) {
	m.regs[r] = v
	switch r {
	case sfr.SBUF:
		m.startTransmit(v)
	case sfr.TL1, sfr.TH1:
		m.reload = uint16(m.regs[sfr.TH1])<<8 | uint16(m.regs[sfr.TL1])
		m.timer = m.reload
	}
	m.step()
}

// KickWatchdog implements core.Bank
func (m *Machine) KickWatchdog() {
	m.lastKick = m.cycle
}

// Nop implements core.Bank
func (m *Machine) Nop() {
	m.step()
}

// Run advances the machine by n cycles without any register access, as if
// the foreground were busy elsewhere
func (m *Machine) Run(n uint64) {
	for i := uint64(0); i < n; i += m.cfg.CyclesPerAccess {
		m.step()
	}
}

func (m *Machine) step() {
	m.advance(m.cfg.CyclesPerAccess)
	m.serviceInterrupts()
}

// advance moves the peripherals forward by n cycles
func (m *Machine) advance(n uint64) {
	for ; n > 0; n-- {
		m.cycle++
		if m.cfg.MaxCycles != 0 && m.cycle > m.cfg.MaxCycles {
			panic(ErrCycleLimit)
		}

		if m.bits[sfr.TR1] {
			m.timer++
			if m.timer == 0 {
				m.timer = m.reload
				m.bits[sfr.TF1] = true
				m.pending[sfr.VectorTimer1] = true
			}
		}

		if m.txBusy && m.cycle >= m.txDoneAt {
			m.finishTransmit()
		}

		if m.bits[sfr.REN] && !m.bits[sfr.RI] && m.rxReady() {
			m.rxBuf = m.rxQueue[0].data
			m.rxQueue = m.rxQueue[1:]
			m.rxLast = m.cycle
			m.bits[sfr.RI] = true
		}

		if m.cfg.WatchdogCycles != 0 && m.cycle-m.lastKick > m.cfg.WatchdogCycles {
			m.watchdogReset()
			return
		}
	}
}

// rxReady reports whether the head of the receive queue has arrived and a
// full character time has passed since the previous byte
func (m *Machine) rxReady() bool {
	if len(m.rxQueue) == 0 || m.rxQueue[0].at > m.cycle {
		return false
	}
	return m.rxLast == 0 || m.cycle-m.rxLast >= m.cfg.RxCycles
}

func (m *Machine) uartEnabled() bool {
	return m.regs[sfr.SCON] != sfr.SCONOff
}

func (m *Machine) startTransmit(c byte) {
	if !m.uartEnabled() {
		return
	}
	m.txBusy = true
	m.txByte = c
	m.txDoneAt = m.cycle + m.cfg.TxCycles
}

func (m *Machine) finishTransmit() {
	m.txBusy = false
	m.bits[sfr.TI] = true
	m.output = append(m.output, m.txByte)
	if m.cfg.Loopback {
		m.rxQueue = append(m.rxQueue, rxByte{at: m.cycle, data: m.txByte})
	}
	if m.OnTransmit != nil {
		m.OnTransmit(m.txByte)
	}
}

// watchdogReset returns the registers to their power-on state. Queued input
// and captured output survive, they live outside the chip.
func (m *Machine) watchdogReset() {
	m.resets++
	m.bits = [sfr.NumBits]bool{}
	m.regs = [sfr.NumRegs]uint8{}
	m.timer, m.reload = 0, 0
	m.txBusy = false
	m.pending = [sfr.NumVectors]bool{}
	m.lastKick = m.cycle
	if m.OnReset != nil {
		m.OnReset()
	}
}

// serviceInterrupts runs pending, enabled vectors in vector order. Interrupts
// do not nest: anything raised inside a handler waits for it to return.
func (m *Machine) serviceInterrupts() {
	if m.inISR || m.handler == nil {
		return
	}
	for v := sfr.Vector(0); v < sfr.NumVectors; v++ {
		if !m.bits[sfr.EA] {
			return
		}
		if !m.pending[v] {
			continue
		}
		bit, _ := v.EnableBit()
		if !m.bits[bit] {
			continue
		}
		m.pending[v] = false
		m.enter(v)
	}
}

// enter is the interrupt prologue, call and epilogue
func (m *Machine) enter(v sfr.Vector) {
	m.stack = append(m.stack, m.cpu)
	m.inISR = true

	m.handler(v)
	m.serviced[v]++

	m.inISR = false
	top := len(m.stack) - 1
	m.cpu = m.stack[top]
	m.stack = m.stack[:top]
}

// Raise signals an edge on the line behind v. The edge is latched only if
// the source's enable bit is set; it is then serviced as soon as EA allows.
func (m *Machine) Raise(v sfr.Vector) {
	if v >= sfr.NumVectors {
		return
	}
	bit, _ := v.EnableBit()
	if !m.bits[bit] {
		return
	}
	m.pending[v] = true
	m.serviceInterrupts()
}

// Serviced returns how many times v has been serviced
func (m *Machine) Serviced(v sfr.Vector) int {
	if v >= sfr.NumVectors {
		return 0
	}
	return m.serviced[v]
}

// InInterrupt reports whether a handler is running
func (m *Machine) InInterrupt() bool {
	return m.inISR
}

// CPU returns the live CPU context
func (m *Machine) CPU() *Context {
	return &m.cpu
}

// StackDepth returns the number of saved contexts
func (m *Machine) StackDepth() int {
	return len(m.stack)
}

// Resets returns how many watchdog resets have happened
func (m *Machine) Resets() int {
	return m.resets
}

// Feed queues data for the receiver, available immediately
func (m *Machine) Feed(data []byte) {
	for _, c := range data {
		m.FeedAt(m.cycle, c)
	}
}

// FeedSpaced queues data with gap cycles before each byte
func (m *Machine) FeedSpaced(data []byte, gap uint64) {
	at := m.cycle
	if n := len(m.rxQueue); n > 0 && m.rxQueue[n-1].at > at {
		at = m.rxQueue[n-1].at
	}
	for _, c := range data {
		at += gap
		m.FeedAt(at, c)
	}
}

// FeedAt queues c to arrive at the given cycle
func (m *Machine) FeedAt(at uint64, c byte) {
	i := len(m.rxQueue)
	for i > 0 && m.rxQueue[i-1].at > at {
		i--
	}
	m.rxQueue = append(m.rxQueue, rxByte{})
	copy(m.rxQueue[i+1:], m.rxQueue[i:])
	m.rxQueue[i] = rxByte{at: at, data: c}
}

// Pending returns the number of queued receive bytes
func (m *Machine) Pending() int {
	return len(m.rxQueue)
}

// Output returns a copy of everything transmitted so far
func (m *Machine) Output() []byte {
	out := make([]byte, len(m.output))
	copy(out, m.output)
	return out
}

// TakeOutput returns and clears the transmitted bytes
func (m *Machine) TakeOutput() []byte {
	out := m.output
	m.output = nil
	return out
}
