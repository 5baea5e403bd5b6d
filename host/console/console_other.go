//go:build !linux

package console

import (
	"fmt"
	"os"
)

// Console is the controlling terminal on one input file. Raw mode is only
// supported on Linux; elsewhere the terminal is left as it is.
type Console struct {
	input *os.File
}

// Open wraps input
func Open(input *os.File) (*Console, error) {
	if input == nil {
		return nil, fmt.Errorf("console requires an input file")
	}
	return &Console{input: input}, nil
}

// IsTerminal always reports false
func (c *Console) IsTerminal() bool {
	return false
}

// RawMode does nothing
func (c *Console) RawMode() error {
	return nil
}

// Restore does nothing
func (c *Console) Restore() error {
	return nil
}
