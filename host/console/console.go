// Package console switches the host terminal between canonical and raw mode
// for interactive sessions with a board.
package console

import (
	"io"
)

// Escape is the key that ends an interactive session (Ctrl-])
const Escape = 0x1D

// CRLFWriter expands every newline into a carriage return and newline. The
// board ends lines with a bare newline, which a raw-mode terminal does not
// return to column zero.
type CRLFWriter struct {
	W io.Writer
}

func (c CRLFWriter) Write(p []byte) (int, error) {
	start := 0
	for i, b := range p {
		if b != '\n' {
			continue
		}
		if _, err := c.W.Write(p[start:i]); err != nil {
			return start, err
		}
		if _, err := c.W.Write([]byte("\r\n")); err != nil {
			return i, err
		}
		start = i + 1
	}
	if start < len(p) {
		if _, err := c.W.Write(p[start:]); err != nil {
			return start, err
		}
	}
	return len(p), nil
}

// SplitEscape returns the bytes of p before the first Escape, and whether
// one was found
func SplitEscape(p []byte) ([]byte, bool) {
	for i, b := range p {
		if b == Escape {
			return p[:i], true
		}
	}
	return p, false
}
