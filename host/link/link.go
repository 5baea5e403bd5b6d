// Package link talks to an FP51 board running a line-oriented sketch over a
// host serial port. Lines sent to the board end in a carriage return, the
// terminator the board's ReadLine stops at; the board answers with lines
// ending in a newline, as Println writes them.
package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"fp51/host/serial"
)

var (
	// ErrNotConnected is returned after Close
	ErrNotConnected = errors.New("link: not connected")

	// ErrTimeout is returned when no complete response line arrives in time
	ErrTimeout = errors.New("link: response timeout")
)

// pollInterval is how long ReadResponse sleeps when the port has nothing
const pollInterval = 5 * time.Millisecond

// Board is a connection to a board
type Board struct {
	mu        sync.Mutex
	port      serial.Port
	pending   []byte // received bytes not yet returned as a line
	connected bool
}

// New wraps an already open port
func New(port serial.Port) *Board {
	return &Board{port: port, connected: true}
}

// Connect opens device at the board's default rate
func Connect(device string) (*Board, error) {
	return ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens a port with a custom serial config
func ConnectWithConfig(cfg *serial.Config) (*Board, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush %s: %w", cfg.Device, err)
	}
	return New(port), nil
}

// Close closes the port
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil
	}
	b.connected = false
	return b.port.Close()
}

// IsConnected returns whether the port is open
func (b *Board) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Write sends raw bytes
func (b *Board) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return 0, ErrNotConnected
	}
	return b.port.Write(p)
}

// SendLine sends line followed by a carriage return. line must not contain
// one itself or the board would see two lines.
func (b *Board) SendLine(line string) error {
	if strings.ContainsRune(line, '\r') {
		return fmt.Errorf("link: line contains a carriage return: %q", line)
	}
	if _, err := b.Write([]byte(line + "\r")); err != nil {
		return fmt.Errorf("failed to send line: %w", err)
	}
	return nil
}

// ReadResponse returns the next newline-terminated line without its
// terminator, waiting up to timeout for it to complete.
func (b *Board) ReadResponse(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 64)

	for {
		b.mu.Lock()
		if !b.connected {
			b.mu.Unlock()
			return "", ErrNotConnected
		}
		if i := bytes.IndexByte(b.pending, '\n'); i >= 0 {
			line := string(b.pending[:i])
			b.pending = b.pending[i+1:]
			b.mu.Unlock()
			return line, nil
		}
		b.mu.Unlock()

		n, err := b.port.Read(buf)
		b.mu.Lock()
		b.pending = append(b.pending, buf[:n]...)
		b.mu.Unlock()

		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
		if n > 0 {
			continue
		}
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}
		time.Sleep(pollInterval)
	}
}

// Exchange sends a line and waits for one response line
func (b *Board) Exchange(line string, timeout time.Duration) (string, error) {
	if err := b.SendLine(line); err != nil {
		return "", err
	}
	return b.ReadResponse(timeout)
}

// Pump copies everything the board sends to w until ctx is done or the
// port fails
func (b *Board) Pump(ctx context.Context, w io.Writer) error {
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b.mu.Lock()
		if !b.connected {
			b.mu.Unlock()
			return ErrNotConnected
		}
		n := copy(buf, b.pending)
		b.pending = b.pending[n:]
		b.mu.Unlock()

		var err error
		if n == 0 {
			n, err = b.port.Read(buf)
		}

		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read from board: %w", err)
		}
		if n == 0 {
			time.Sleep(pollInterval)
		}
	}
}
