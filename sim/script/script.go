// Package script runs Starlark scenarios against a simulated board.
//
// A scenario is a plain Starlark file. The runtime API is exposed as
// builtins operating on one board:
//
//	open(1000000)
//	feed("hello\r")
//	line = read_line(16)
//	write(line + "\n")
//
// Anything the script prints goes to the runner's output writer.
package script

import (
	"errors"
	"fmt"
	"io"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"fp51/core"
	"fp51/sfr"
	"fp51/sim"
)

// ErrHandler wraps an error raised by a Starlark interrupt handler
var ErrHandler = errors.New("script: interrupt handler failed")

// Runner executes scenarios on a board and its simulated machine
type Runner struct {
	board   *core.Board
	machine *sim.Machine
	out     io.Writer

	thread     *starlark.Thread
	handlerErr error
}

// New creates a runner. out receives print output and may be nil.
func New(board *core.Board, machine *sim.Machine, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{board: board, machine: machine, out: out}
}

// Exec runs src and returns its global variables
func (r *Runner) Exec(filename string, src []byte) (globals starlark.StringDict, err error) {
	r.thread = &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(r.out, msg)
		},
	}
	r.handlerErr = nil

	defer func() {
		if p := recover(); p != nil {
			if p == sim.ErrCycleLimit {
				err = fmt.Errorf("%s: %w", filename, sim.ErrCycleLimit)
				return
			}
			panic(p)
		}
	}()

	opts := syntax.FileOptions{
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
	}
	globals, err = starlark.ExecFileOptions(&opts, r.thread, filename, src, r.predeclared())
	if err != nil {
		return globals, err
	}
	if r.handlerErr != nil {
		return globals, r.handlerErr
	}
	return globals, nil
}

func (r *Runner) predeclared() starlark.StringDict {
	env := starlark.StringDict{
		"DEC": starlark.MakeInt(int(core.DEC)),
		"BIN": starlark.MakeInt(int(core.BIN)),
		"OCT": starlark.MakeInt(int(core.OCT)),
		"HEX": starlark.MakeInt(int(core.HEX)),

		"INT0":     starlark.MakeInt(int(core.INT0)),
		"TIMER0":   starlark.MakeInt(int(core.Timer0)),
		"INT1_I2C": starlark.MakeInt(int(core.INT1I2C)),
		"ADC":      starlark.MakeInt(int(core.ADC)),
		"CODEC":    starlark.MakeInt(int(core.Codec)),
	}

	builtins := map[string]func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error){
		"open":          r.open,
		"close":         r.close,
		"set_timeout":   r.setTimeout,
		"read_bytes":    r.readBytes,
		"read_line":     r.readLine,
		"receive":       r.receive,
		"available":     r.available,
		"write":         r.write,
		"print_num":     r.printNum,
		"println_num":   r.printlnNum,
		"print_dec8":    r.printDec8,
		"millis":        r.millis,
		"micros":        r.micros,
		"delay":         r.delay,
		"delay_us":      r.delayUs,
		"attach":        r.attach,
		"raise_irq":     r.raiseIRQ,
		"interrupts":    r.interrupts,
		"no_interrupts": r.noInterrupts,
		"feed":          r.feed,
		"feed_spaced":   r.feedSpaced,
		"run":           r.run,
		"output":        r.output,
		"cycle":         r.cycle,
		"resets":        r.resets,
	}
	for name, fn := range builtins {
		env[name] = starlark.NewBuiltin(name, fn)
	}
	return env
}

// unpackUint32 reads one non-negative integer argument
func unpackUint32(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, name string) (uint32, error) {
	var v int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, name, &v); err != nil {
		return 0, err
	}
	if v < 0 || int64(v) > int64(^uint32(0)) {
		return 0, fmt.Errorf("%s: %s out of range: %d", b.Name(), name, v)
	}
	return uint32(v), nil
}

func noArgs(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) error {
	return starlark.UnpackArgs(b.Name(), args, kwargs)
}

// serialErr decorates a core error with the builtin name
func serialErr(b *starlark.Builtin, err error) error {
	return fmt.Errorf("%s: %w", b.Name(), err)
}

func (r *Runner) open(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	rate, err := unpackUint32(b, args, kwargs, "rate")
	if err != nil {
		return nil, err
	}
	if err := r.board.Serial.Open(rate); err != nil {
		return nil, serialErr(b, err)
	}
	return starlark.None, nil
}

func (r *Runner) close(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	r.board.Serial.Close()
	return starlark.None, nil
}

func (r *Runner) setTimeout(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ms, err := unpackUint32(b, args, kwargs, "ms")
	if err != nil {
		return nil, err
	}
	r.board.Serial.SetTimeout(ms)
	return starlark.None, nil
}

// readBytes returns (data, ok). On a timeout ok is False and data holds what
// arrived before it.
func (r *Runner) readBytes(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	n, err := unpackUint32(b, args, kwargs, "n")
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	got, err := r.board.Serial.ReadBytes(buf, len(buf))
	switch {
	case errors.Is(err, core.ErrTimeout):
		return starlark.Tuple{starlark.String(buf[:got]), starlark.False}, nil
	case err != nil:
		return nil, serialErr(b, err)
	}
	return starlark.Tuple{starlark.String(buf[:got]), starlark.True}, nil
}

func (r *Runner) readLine(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	maxLength, err := unpackUint32(b, args, kwargs, "max")
	if err != nil {
		return nil, err
	}
	buf := make([]byte, maxLength)
	n, err := r.board.Serial.ReadLine(buf, len(buf))
	if err != nil {
		return nil, serialErr(b, err)
	}
	return starlark.String(buf[:n]), nil
}

func (r *Runner) receive(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	c, err := r.board.Serial.ReceiveByteBlocking()
	if err != nil {
		return nil, serialErr(b, err)
	}
	return starlark.MakeInt(int(c)), nil
}

func (r *Runner) available(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	return starlark.Bool(r.board.Serial.Available()), nil
}

func (r *Runner) write(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data); err != nil {
		return nil, err
	}
	n, err := r.board.Serial.WriteString(data)
	if err != nil {
		return nil, serialErr(b, err)
	}
	return starlark.MakeInt(n), nil
}

func unpackNum(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (int32, core.Format, error) {
	var v int64
	format := int(core.DEC)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "v", &v, "fmt?", &format); err != nil {
		return 0, 0, err
	}
	return int32(v), core.Format(format), nil
}

func (r *Runner) printNum(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	v, format, err := unpackNum(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	if err := r.board.Serial.Print(v, format); err != nil {
		return nil, serialErr(b, err)
	}
	return starlark.None, nil
}

func (r *Runner) printlnNum(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	v, format, err := unpackNum(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	if err := r.board.Serial.Println(v, format); err != nil {
		return nil, serialErr(b, err)
	}
	return starlark.None, nil
}

func (r *Runner) printDec8(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "v", &v); err != nil {
		return nil, err
	}
	if v < -128 || v > 127 {
		return nil, fmt.Errorf("%s: value out of range: %d", b.Name(), v)
	}
	if err := r.board.Serial.PrintDec8(int8(v)); err != nil {
		return nil, serialErr(b, err)
	}
	return starlark.None, nil
}

func (r *Runner) millis(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeUint64(uint64(r.board.Millis())), nil
}

func (r *Runner) micros(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeUint64(uint64(r.board.Micros())), nil
}

func (r *Runner) delay(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ms, err := unpackUint32(b, args, kwargs, "ms")
	if err != nil {
		return nil, err
	}
	r.board.Delay(ms)
	return starlark.None, nil
}

func (r *Runner) delayUs(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	us, err := unpackUint32(b, args, kwargs, "us")
	if err != nil {
		return nil, err
	}
	r.board.DelayMicroseconds(us)
	return starlark.None, nil
}

// attach installs a Starlark callable as the handler for a source, or
// detaches it when fn is None. Unknown sources are ignored like on the board.
func (r *Runner) attach(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var src int
	var fn starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &src, "fn", &fn); err != nil {
		return nil, err
	}
	if src < 0 || src > 0xFF {
		return starlark.None, nil
	}

	if fn == starlark.None {
		r.board.Attach(core.Source(src), nil)
		return starlark.None, nil
	}
	callable, ok := fn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s: fn must be callable or None, got %s", b.Name(), fn.Type())
	}
	r.board.Attach(core.Source(src), func() {
		if _, err := starlark.Call(thread, callable, nil, nil); err != nil && r.handlerErr == nil {
			r.handlerErr = fmt.Errorf("%w: %s: %v", ErrHandler, callable.Name(), err)
		}
	})
	return starlark.None, nil
}

func (r *Runner) raiseIRQ(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var src int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &src); err != nil {
		return nil, err
	}
	if src >= 0 && src < int(sfr.NumVectors) {
		r.machine.Raise(sfr.Vector(src))
	}
	if r.handlerErr != nil {
		return nil, r.handlerErr
	}
	return starlark.None, nil
}

func (r *Runner) interrupts(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	r.board.Interrupts()
	return starlark.None, nil
}

func (r *Runner) noInterrupts(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	r.board.NoInterrupts()
	return starlark.None, nil
}

func (r *Runner) feed(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data); err != nil {
		return nil, err
	}
	r.machine.Feed([]byte(data))
	return starlark.None, nil
}

func (r *Runner) feedSpaced(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data string
	var gap int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data, "gap", &gap); err != nil {
		return nil, err
	}
	if gap < 0 {
		return nil, fmt.Errorf("%s: negative gap %d", b.Name(), gap)
	}
	r.machine.FeedSpaced([]byte(data), uint64(gap))
	return starlark.None, nil
}

func (r *Runner) run(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "cycles", &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%s: negative cycle count %d", b.Name(), n)
	}
	r.machine.Run(uint64(n))
	if r.handlerErr != nil {
		return nil, r.handlerErr
	}
	return starlark.None, nil
}

func (r *Runner) output(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	return starlark.String(r.machine.TakeOutput()), nil
}

func (r *Runner) cycle(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeUint64(r.machine.Cycle()), nil
}

func (r *Runner) resets(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noArgs(b, args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeInt(r.machine.Resets()), nil
}
