package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fp51/sfr"
	"fp51/sim"
)

func TestNewDispatchTableStartsDisabled(t *testing.T) {
	bank := &fakeBank{}
	for _, bit := range []sfr.Bit{sfr.EX0, sfr.ET0, sfr.EX1, sfr.EADC, sfr.ECODEC} {
		bank.bits[bit] = true
	}

	table := NewDispatchTable(bank)

	for _, src := range Sources {
		assert.False(t, table.Enabled(src), "source %d", src)
		assert.False(t, table.Attached(src), "source %d", src)
	}
}

func TestAttachSetsEnableBit(t *testing.T) {
	tests := []struct {
		src Source
		bit sfr.Bit
	}{
		{INT0, sfr.EX0},
		{Timer0, sfr.ET0},
		{INT1I2C, sfr.EX1},
		{ADC, sfr.EADC},
		{Codec, sfr.ECODEC},
	}

	for _, tt := range tests {
		bank := &fakeBank{}
		table := NewDispatchTable(bank)

		table.Attach(tt.src, func() {})
		assert.True(t, bank.bits[tt.bit], "attach %d", tt.src)
		assert.True(t, table.Enabled(tt.src))
		assert.True(t, table.Attached(tt.src))

		table.Attach(tt.src, nil)
		assert.False(t, bank.bits[tt.bit], "detach %d", tt.src)
		assert.False(t, table.Enabled(tt.src))
		assert.False(t, table.Attached(tt.src))
	}
}

func TestAttachIgnoresUnknownSource(t *testing.T) {
	bank := &fakeBank{}
	table := NewDispatchTable(bank)
	bank.bits[sfr.ET1] = true
	before := bank.bits

	for _, src := range []Source{Source(sfr.VectorTimer1), Source(sfr.VectorSerial), Source(9)} {
		table.Attach(src, func() {})
		assert.False(t, table.Enabled(src))
		assert.False(t, table.Attached(src))
		assert.False(t, table.Service(src))
	}
	assert.Equal(t, before, bank.bits)
}

func TestAttachRestoresInterruptState(t *testing.T) {
	for _, ea := range []bool{true, false} {
		bank := &fakeBank{}
		table := NewDispatchTable(bank)
		bank.bits[sfr.EA] = ea
		bank.log = nil

		table.Attach(ADC, func() {})

		assert.Equal(t, ea, bank.bits[sfr.EA])
		require.NotEmpty(t, bank.log)
		assert.Equal(t, sfr.EA, bank.log[0], "EA must be cleared before the slot changes")
	}
}

func TestReattachReplacesHandler(t *testing.T) {
	table := NewDispatchTable(&fakeBank{})
	var got []string

	table.Attach(Codec, func() { got = append(got, "first") })
	table.Attach(Codec, func() { got = append(got, "second") })

	require.True(t, table.Service(Codec))
	assert.Equal(t, []string{"second"}, got)
}

func TestRaiseRunsAttachedHandler(t *testing.T) {
	b, m := newOpenBoard(t, sim.Config{})

	calls := 0
	inside := false
	b.Attach(INT0, func() {
		calls++
		inside = m.InInterrupt()
	})

	m.Raise(sfr.VectorINT0)
	assert.Equal(t, 1, calls)
	assert.True(t, inside)
	assert.Equal(t, 1, m.Serviced(sfr.VectorINT0))

	b.Attach(INT0, nil)
	m.Raise(sfr.VectorINT0)
	assert.Equal(t, 1, calls, "detached source must not run")
	assert.Equal(t, 1, m.Serviced(sfr.VectorINT0))
}

func TestRaiseWaitsForInterrupts(t *testing.T) {
	b, m := newOpenBoard(t, sim.Config{})

	calls := 0
	b.Attach(ADC, func() { calls++ })

	b.NoInterrupts()
	m.Raise(sfr.VectorADC)
	m.Run(100)
	assert.Zero(t, calls)

	b.Interrupts()
	assert.Equal(t, 1, calls)
}

func TestHandlerContextIsPreserved(t *testing.T) {
	b, m := newOpenBoard(t, sim.Config{})

	cpu := m.CPU()
	cpu.ACC, cpu.B, cpu.PSW, cpu.DPL, cpu.DPH = 0x11, 0x22, 0x33, 0x44, 0x55
	cpu.R = [8]uint8{1, 2, 3, 4, 5, 6, 7, 8}
	want := *cpu

	b.Attach(Codec, func() {
		assert.Equal(t, 1, m.StackDepth())
		c := m.CPU()
		c.ACC, c.B, c.PSW, c.DPL, c.DPH = 0, 0, 0, 0, 0
		c.R = [8]uint8{}
	})
	m.Raise(sfr.VectorCodec)

	assert.Equal(t, want, *m.CPU())
	assert.Zero(t, m.StackDepth())
	assert.False(t, m.InInterrupt())
}

func TestHandlerCanUseSerial(t *testing.T) {
	b, m := newOpenBoard(t, sim.Config{})

	b.Attach(INT1I2C, func() {
		require.NoError(t, b.Serial.PutByte('!'))
	})
	m.Raise(sfr.VectorINT1I2C)

	assert.Equal(t, "!", string(m.Output()))
}
