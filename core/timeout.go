package core

import "fp51/sfr"

// SetTimeout sets the inter-byte timeout used by ReadBytes. Zero makes
// ReadBytes block until every byte has arrived. The timeout is kept in
// milliseconds and converted on every read, so it still holds after Open
// changes the rate.
func (s *Serial) SetTimeout(ms uint32) {
	s.timeoutMs = ms
}

// Timeout returns the budget in coarse ticks at the current rate. A non-zero
// timeout shorter than one coarse tick is rounded up to one tick.
func (s *Serial) Timeout() uint32 {
	if s.timeoutMs == 0 {
		return 0
	}
	budget := s.time.ticks(s.timeoutMs, 1000)
	if budget == 0 {
		budget = 1
	}
	return budget
}

// ReadBytes reads length bytes into buf. With a timeout configured the budget
// restarts on every received byte, so it bounds the gap between bytes rather
// than the whole transfer. It returns the number of bytes stored, which is
// short of length only together with ErrTimeout. length is clamped to len(buf).
func (s *Serial) ReadBytes(buf []byte, length int) (int, error) {
	if !s.open {
		return 0, ErrClosed
	}
	if length > len(buf) {
		length = len(buf)
	}
	if length <= 0 {
		return 0, nil
	}

	budget := s.Timeout()
	if budget == 0 {
		for i := 0; i < length; i++ {
			buf[i] = s.receiveBlocking()
		}
		return length, nil
	}

	n := 0
	s.bank.SetBit(sfr.REN, true)
	done := s.clock.Poll(budget, func() PollResult {
		if !s.bank.Bit(sfr.RI) {
			return PollContinue
		}
		buf[n] = s.bank.Reg(sfr.SBUF)
		s.bank.SetBit(sfr.RI, false)
		n++
		if n == length {
			return PollDone
		}
		return PollRearm
	})
	s.bank.SetBit(sfr.REN, false)

	if !done {
		DebugPrintln("[SERIAL] read timeout after " + itoa(n) + "/" + itoa(length) + " bytes")
		RecordEvent(EvtTimeout, 0, uint32(n))
		return n, ErrTimeout
	}
	return n, nil
}

// Read implements io.Reader on top of ReadBytes
func (s *Serial) Read(p []byte) (int, error) {
	return s.ReadBytes(p, len(p))
}
