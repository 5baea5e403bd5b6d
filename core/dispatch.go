package core

import "fp51/sfr"

// Source is an attachable interrupt source. Its value is the interrupt
// vector; timer 1 and the serial port are not attachable.
type Source uint8

const (
	INT0    Source = Source(sfr.VectorINT0)
	Timer0  Source = Source(sfr.VectorTimer0)
	INT1I2C Source = Source(sfr.VectorINT1I2C)
	ADC     Source = Source(sfr.VectorADC)
	Codec   Source = Source(sfr.VectorCodec)
)

// Sources lists the attachable sources in slot order
var Sources = [NumSlots]Source{INT0, Timer0, INT1I2C, ADC, Codec}

// NumSlots is the number of dispatch slots
const NumSlots = 5

// Handler is an interrupt handler. It runs with interrupts masked.
type Handler func()

type slot struct {
	source Source
	enable sfr.Bit
	fn     Handler
}

// DispatchTable maps attachable sources to handlers and keeps each source's
// enable bit in step with its slot: set while a handler is attached, clear
// otherwise.
type DispatchTable struct {
	bank  Bank
	slots [NumSlots]slot
}

// NewDispatchTable creates an empty table. All sources start disabled.
func NewDispatchTable(bank Bank) *DispatchTable {
	t := &DispatchTable{bank: bank}
	for i, src := range Sources {
		bit, _ := sfr.Vector(src).EnableBit()
		t.slots[i] = slot{source: src, enable: bit}
		bank.SetBit(bit, false)
	}
	return t
}

func (t *DispatchTable) lookup(src Source) *slot {
	for i := range t.slots {
		if t.slots[i].source == src {
			return &t.slots[i]
		}
	}
	return nil
}

// Attach installs fn for src and enables the source, or disables it when fn
// is nil. Unknown sources are ignored.
func (t *DispatchTable) Attach(src Source, fn Handler) {
	s := t.lookup(src)
	if s == nil {
		return
	}

	state := disableInterrupts(t.bank)
	defer restoreInterrupts(t.bank, state)

	s.fn = fn
	t.bank.SetBit(s.enable, fn != nil)

	if fn != nil {
		DebugPrintln("[IRQ] attach vector=" + utoa(uint32(src)))
		RecordEvent(EvtAttach, uint8(src), 1)
	} else {
		DebugPrintln("[IRQ] detach vector=" + utoa(uint32(src)))
		RecordEvent(EvtAttach, uint8(src), 0)
	}
}

// Enabled reports the enable bit of src. Unknown sources report false.
func (t *DispatchTable) Enabled(src Source) bool {
	s := t.lookup(src)
	if s == nil {
		return false
	}
	return t.bank.Bit(s.enable)
}

// Attached reports whether src has a handler
func (t *DispatchTable) Attached(src Source) bool {
	s := t.lookup(src)
	return s != nil && s.fn != nil
}

// Service is the trampoline for an attachable vector: it runs the attached
// handler, if any. It reports whether a handler ran.
func (t *DispatchTable) Service(src Source) bool {
	s := t.lookup(src)
	if s == nil || s.fn == nil {
		return false
	}
	s.fn()
	return true
}
