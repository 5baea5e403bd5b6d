// Package sfr names the special function registers of the FP51 core that the
// runtime touches. Bit-addressable flags and byte registers are kept apart so
// a register bank can model them with plain arrays.
package sfr

// Bit identifies a single bit-addressable SFR flag.
type Bit uint8

const (
	// IE (interrupt enable)
	EA     Bit = iota // global interrupt enable
	EX0               // external interrupt 0
	ET0               // timer 0 overflow
	EX1               // external interrupt 1 / I2C
	ET1               // timer 1 overflow
	ES                // serial port
	EADC              // ADC conversion done
	ECODEC            // audio codec

	// TCON
	TR1 // timer 1 run
	TF1 // timer 1 overflow flag

	// SCON
	REN // receive enable
	TI  // transmit complete
	RI  // receive ready

	NumBits
)

var bitNames = [NumBits]string{
	EA: "EA", EX0: "EX0", ET0: "ET0", EX1: "EX1", ET1: "ET1", ES: "ES",
	EADC: "EADC", ECODEC: "ECODEC", TR1: "TR1", TF1: "TF1",
	REN: "REN", TI: "TI", RI: "RI",
}

func (b Bit) String() string {
	if b < NumBits {
		return bitNames[b]
	}
	return "BIT?"
}

// Reg identifies a byte-wide SFR.
type Reg uint8

const (
	SBUF Reg = iota // serial data
	SCON            // serial control
	TMOD            // timer mode
	TL1             // timer 1 reload, low byte
	TH1             // timer 1 reload, high byte

	NumRegs
)

var regNames = [NumRegs]string{
	SBUF: "SBUF", SCON: "SCON", TMOD: "TMOD", TL1: "TL1", TH1: "TH1",
}

func (r Reg) String() string {
	if r < NumRegs {
		return regNames[r]
	}
	return "REG?"
}

// Register values programmed by the serial channel.
const (
	TMODTimer16 = 0x11 // both timers in 16-bit mode
	SCONMode3   = 0xC0 // 9-bit UART, variable rate
	SCONOff     = 0x00
)

// Vector is an interrupt vector number.
type Vector uint8

const (
	VectorINT0    Vector = 0
	VectorTimer0  Vector = 1
	VectorINT1I2C Vector = 2
	VectorTimer1  Vector = 3
	VectorSerial  Vector = 4
	VectorADC     Vector = 5
	VectorCodec   Vector = 6

	NumVectors = 7
)

// EnableBit returns the IE bit gating v.
func (v Vector) EnableBit() (Bit, bool) {
	switch v {
	case VectorINT0:
		return EX0, true
	case VectorTimer0:
		return ET0, true
	case VectorINT1I2C:
		return EX1, true
	case VectorTimer1:
		return ET1, true
	case VectorSerial:
		return ES, true
	case VectorADC:
		return EADC, true
	case VectorCodec:
		return ECODEC, true
	}
	return 0, false
}
