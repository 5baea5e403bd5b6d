package serial

import (
	"errors"
	"fmt"
	"io"

	"fp51/core"
)

// Port is a host-side serial connection to a board.
// The native implementation uses github.com/tarm/serial; tests use pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// ErrUnsupportedBaud is returned for a rate the FP51 timer cannot produce
var ErrUnsupportedBaud = errors.New("serial: baud rate not supported by the board")

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate, must match the rate the sketch opened the board channel with
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration for a board running at its
// default rate
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        core.DefaultRate,
		ReadTimeout: 100,
	}
}

// Validate checks that the board could run at the configured rate: timer 1
// reloads from a 16-bit rate factor.
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("serial: no device given")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaud, c.Baud)
	}
	factor := core.ReferenceClock / c.Baud
	if factor == 0 || factor > 0xFFFF {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaud, c.Baud)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("serial: negative read timeout %d", c.ReadTimeout)
	}
	return nil
}
