package core

import "fp51/sfr"

// settle delays, in instruction cycles
const (
	reconfigureSettle = 4 // after stopping timer 1 before reprogramming it
	sconSettle        = 2 // after writing SCON
	receiverSettle    = 3 // around toggling REN before polling RI
)

// Serial is the UART channel of the FP51. It is polled: transmit and receive
// spin on TI and RI. Timer 1 sets the bit rate and doubles as the tick source,
// so the rate factor computed at Open also scales the time API.
type Serial struct {
	bank           Bank
	clock          *TickClock
	referenceClock uint32

	open      bool
	factor    uint32 // ClockRateFactor
	timeoutMs uint32 // 0 blocks
	time      *timeBase
}

// NewSerial creates a closed channel. A zero referenceClock selects
// ReferenceClock.
func NewSerial(bank Bank, clock *TickClock, referenceClock uint32) *Serial {
	if referenceClock == 0 {
		referenceClock = ReferenceClock
	}
	factor := referenceClock / DefaultRate
	return &Serial{
		bank:           bank,
		clock:          clock,
		referenceClock: referenceClock,
		factor:         factor,
		time:           newTimeBase(clock, referenceClock, factor),
	}
}

// Open configures timer 1 for rate and enables the UART. Calling Open on an
// open channel reconfigures it. Interrupts are globally enabled on return.
func (s *Serial) Open(rate uint32) error {
	if rate == 0 {
		return ErrInvalidRate
	}
	factor := s.referenceClock / rate
	if factor == 0 || factor > 0xFFFF {
		return ErrInvalidRate
	}

	s.bank.SetBit(sfr.TR1, false)
	s.bank.SetBit(sfr.ET1, false)
	s.bank.SetBit(sfr.EA, false)
	nopDelay(s.bank, reconfigureSettle)

	s.time.setFactor(factor)
	s.factor = factor
	reload := 0x10000 - factor
	s.bank.SetReg(sfr.TL1, uint8(reload&0xFF))
	s.bank.SetReg(sfr.TH1, uint8((reload>>8)&0xFF))

	s.bank.SetReg(sfr.TMOD, sfr.TMODTimer16)
	s.bank.SetBit(sfr.TR1, true)

	s.bank.SetReg(sfr.SCON, sfr.SCONMode3)
	nopDelay(s.bank, sconSettle)
	s.open = true

	s.bank.SetBit(sfr.ET1, true)
	s.bank.SetBit(sfr.EA, true)

	DebugPrintln("[SERIAL] open rate=" + utoa(rate) + " factor=" + utoa(factor))
	RecordEvent(EvtOpen, 0, factor)
	return nil
}

// Close disables the UART. Timer 1 keeps running, so time keeps advancing,
// and the rate factor is left as it was.
func (s *Serial) Close() {
	s.bank.SetReg(sfr.SCON, sfr.SCONOff)
	nopDelay(s.bank, sconSettle)
	s.open = false

	DebugPrintln("[SERIAL] close")
	RecordEvent(EvtClose, 0, 0)
}

// IsOpen reports whether the channel has been opened
func (s *Serial) IsOpen() bool {
	return s.open
}

// RateFactor returns the clock rate factor of the last Open
func (s *Serial) RateFactor() uint32 {
	return s.factor
}

// PutByte transmits c and waits for the transmitter to finish
func (s *Serial) PutByte(c byte) error {
	if !s.open {
		return ErrClosed
	}
	s.putByte(c)
	return nil
}

func (s *Serial) putByte(c byte) {
	s.bank.SetBit(sfr.REN, false)
	s.bank.SetReg(sfr.SBUF, c)
	for !s.bank.Bit(sfr.TI) {
	}
	s.bank.SetBit(sfr.TI, false)
}

// Print writes num in the given format. DEC is signed; BIN, OCT and HEX print
// the two's-complement bit pattern. Unknown formats print decimal.
func (s *Serial) Print(num int32, format Format) error {
	if !s.open {
		return ErrClosed
	}

	base := format.base()
	v := uint32(num)
	if base == 10 && num < 0 {
		s.putByte('-')
		v = magnitude(num)
	}

	var buf [32]byte
	for _, c := range formatUint(&buf, v, base) {
		s.putByte(c)
	}
	return nil
}

// PrintHex writes num as upper-case hex without leading zeros
func (s *Serial) PrintHex(num uint32) error {
	return s.Print(int32(num), HEX)
}

// PrintDec8 writes an 8-bit signed value in decimal
func (s *Serial) PrintDec8(num int8) error {
	if !s.open {
		return ErrClosed
	}
	v := uint8(num)
	if num < 0 {
		s.putByte('-')
		v = ^v + 1
	}

	hundreds := v / 100
	if hundreds != 0 {
		s.putByte(digitToASCII(hundreds))
	}
	tens := (v - hundreds*100) / 10
	if tens != 0 || hundreds != 0 {
		s.putByte(digitToASCII(tens))
	}
	s.putByte(digitToASCII(v % 10))
	return nil
}

// Println writes num followed by a newline
func (s *Serial) Println(num int32, format Format) error {
	if err := s.Print(num, format); err != nil {
		return err
	}
	s.putByte('\n')
	return nil
}

// ReceiveByte reads SBUF without waiting. Pair it with Available; if nothing
// has arrived the value is whatever SBUF last held.
func (s *Serial) ReceiveByte() byte {
	s.bank.SetBit(sfr.REN, true)
	c := s.bank.Reg(sfr.SBUF)
	s.bank.SetBit(sfr.RI, false)
	return c
}

// Available reports whether a received byte is waiting
func (s *Serial) Available() bool {
	if !s.bank.Bit(sfr.REN) {
		s.bank.SetBit(sfr.REN, true)
	}
	return s.bank.Bit(sfr.RI)
}

// ReceiveByteBlocking waits for the next byte. There is no timeout.
func (s *Serial) ReceiveByteBlocking() (byte, error) {
	if !s.open {
		return 0, ErrClosed
	}
	return s.receiveBlocking(), nil
}

// receiveBlocking clears RI and re-enables the receiver with settle delays on
// either side; polling RI straight after REN goes high can see a stale flag.
func (s *Serial) receiveBlocking() byte {
	s.bank.SetBit(sfr.RI, false)
	nopDelay(s.bank, receiverSettle)

	s.bank.SetBit(sfr.REN, true)
	nopDelay(s.bank, receiverSettle)

	for !s.bank.Bit(sfr.RI) {
	}
	c := s.bank.Reg(sfr.SBUF)
	s.bank.SetBit(sfr.RI, false)
	return c
}

// ReadLine reads bytes into buf until a carriage return or maxLength bytes.
// The carriage return is stored as a 0 terminator and not counted. maxLength
// is clamped to len(buf).
func (s *Serial) ReadLine(buf []byte, maxLength int) (int, error) {
	if !s.open {
		return 0, ErrClosed
	}
	if maxLength > len(buf) {
		maxLength = len(buf)
	}

	count := 0
	for count < maxLength {
		c := s.receiveBlocking()
		if c == '\r' {
			buf[count] = 0
			break
		}
		buf[count] = c
		count++
	}
	return count, nil
}

// WriteN writes length bytes of buf. A zero length writes buf up to its first
// 0 byte, or all of it if there is none.
func (s *Serial) WriteN(buf []byte, length int) (int, error) {
	if !s.open {
		return 0, ErrClosed
	}
	if length == 0 {
		n := 0
		for n < len(buf) && buf[n] != 0 {
			s.putByte(buf[n])
			n++
		}
		return n, nil
	}
	if length < 0 {
		return 0, nil
	}
	if length > len(buf) {
		length = len(buf)
	}
	for _, c := range buf[:length] {
		s.putByte(c)
	}
	return length, nil
}

// Write implements io.Writer
func (s *Serial) Write(p []byte) (int, error) {
	if len(p) == 0 {
		if !s.open {
			return 0, ErrClosed
		}
		return 0, nil
	}
	return s.WriteN(p, len(p))
}

// WriteString writes str byte by byte
func (s *Serial) WriteString(str string) (int, error) {
	if !s.open {
		return 0, ErrClosed
	}
	for i := 0; i < len(str); i++ {
		s.putByte(str[i])
	}
	return len(str), nil
}
