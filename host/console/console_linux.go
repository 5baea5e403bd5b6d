//go:build linux

package console

import (
	"fmt"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Console is the controlling terminal on one input file
type Console struct {
	input    *os.File
	canAttr  unix.Termios
	terminal bool
	raw      bool
}

// Open records the current attributes of input. A file that is not a
// terminal is accepted; mode changes on it are no-ops.
func Open(input *os.File) (*Console, error) {
	if input == nil {
		return nil, fmt.Errorf("console requires an input file")
	}
	c := &Console{input: input}
	if err := termios.Tcgetattr(input.Fd(), &c.canAttr); err == nil {
		c.terminal = true
	}
	return c, nil
}

// IsTerminal reports whether the input is a terminal
func (c *Console) IsTerminal() bool {
	return c.terminal
}

// RawMode puts the terminal into raw mode: no echo, no line editing, no
// signal keys
func (c *Console) RawMode() error {
	if !c.terminal || c.raw {
		return nil
	}
	rawAttr := c.canAttr
	termios.Cfmakeraw(&rawAttr)
	if err := termios.Tcsetattr(c.input.Fd(), termios.TCSAFLUSH, &rawAttr); err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	c.raw = true
	return nil
}

// Restore puts back the attributes Open found
func (c *Console) Restore() error {
	if !c.terminal || !c.raw {
		return nil
	}
	if err := termios.Tcsetattr(c.input.Fd(), termios.TCSANOW, &c.canAttr); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	c.raw = false
	return nil
}
