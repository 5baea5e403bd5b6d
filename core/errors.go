package core

import "errors"

var (
	// ErrTimeout is returned by ReadBytes when the inter-byte budget runs out
	ErrTimeout = errors.New("serial: read timeout")

	// ErrClosed is returned by data operations on a closed serial channel
	ErrClosed = errors.New("serial: channel closed")

	// ErrInvalidRate is returned by Open for a rate the timer cannot produce
	ErrInvalidRate = errors.New("serial: invalid rate")
)
