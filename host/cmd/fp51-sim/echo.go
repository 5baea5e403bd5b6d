package main

import (
	"bytes"
	"context"
	"io"

	"fp51/core"
	"fp51/sim"
)

// lineGap is the idle time between two fed input bytes, in machine cycles
const lineGap = 2000

// echoSketch reads lines from the serial channel and writes each one back,
// newline terminated. It stops once the receive queue has drained.
type echoSketch struct {
	machine *sim.Machine
	cancel  context.CancelFunc
	buf     [64]byte
	err     error
}

func (e *echoSketch) Setup(b *core.Board) {
	if err := b.Begin(); err != nil {
		e.err = err
		e.cancel()
	}
}

func (e *echoSketch) Loop(b *core.Board) {
	if e.err != nil {
		return
	}
	if e.machine.Pending() == 0 {
		e.cancel()
		return
	}

	n, err := b.Serial.ReadLine(e.buf[:], len(e.buf))
	if err == nil {
		_, err = b.Serial.WriteN(e.buf[:n], n)
	}
	if err == nil {
		err = b.Serial.PutByte('\n')
	}
	if err != nil {
		e.err = err
		e.cancel()
	}
}

// toBoardLines turns host text into what the board's ReadLine expects:
// lines end in a carriage return, and the last line is terminated too.
func toBoardLines(input []byte) []byte {
	input = bytes.ReplaceAll(input, []byte("\r\n"), []byte("\r"))
	input = bytes.ReplaceAll(input, []byte("\n"), []byte("\r"))
	if len(input) > 0 && input[len(input)-1] != '\r' {
		input = append(input, '\r')
	}
	return input
}

// runEcho feeds input to a simulated board running the echo sketch and
// copies everything it transmits to out
func runEcho(cfg sim.Config, board core.BoardConfig, input io.Reader, out io.Writer) error {
	data, err := io.ReadAll(input)
	if err != nil {
		return err
	}

	m := sim.New(cfg)
	b := core.NewBoard(m, board)
	m.SetInterruptHandler(b.HandleInterrupt)

	var werr error
	m.OnTransmit = func(c byte) {
		if werr == nil {
			_, werr = out.Write([]byte{c})
		}
	}
	m.FeedSpaced(toBoardLines(data), lineGap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sketch := &echoSketch{machine: m, cancel: cancel}

	if err := core.Run(ctx, b, sketch); err != nil && ctx.Err() == nil {
		return err
	}
	if sketch.err != nil {
		return sketch.err
	}
	return werr
}
