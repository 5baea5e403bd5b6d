package script

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"fp51/core"
	"fp51/sim"
)

func newRunner(t *testing.T, cfg sim.Config) (*Runner, *sim.Machine, *bytes.Buffer) {
	t.Helper()
	if cfg.MaxCycles == 0 {
		cfg.MaxCycles = 20_000_000
	}
	m := sim.New(cfg)
	b := core.NewBoard(m, core.DefaultBoardConfig())
	m.SetInterruptHandler(b.HandleInterrupt)
	var out bytes.Buffer
	return New(b, m, &out), m, &out
}

func exec(t *testing.T, r *Runner, src string) starlark.StringDict {
	t.Helper()
	globals, err := r.Exec("test.star", []byte(src))
	require.NoError(t, err)
	return globals
}

func TestScriptEcho(t *testing.T) {
	r, m, _ := newRunner(t, sim.Config{})

	exec(t, r, `
open(1000000)
feed("hello\r")
line = read_line(16)
write(line + "\n")
`)
	assert.Equal(t, "hello\n", string(m.Output()))
}

func TestScriptPrintNumbers(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{})

	globals := exec(t, r, `
open(1000000)
print_num(-123)
print_num(255, HEX)
println_num(5, fmt=BIN)
print_dec8(-100)
out = output()
`)
	assert.Equal(t, starlark.String("-123FF101\n-100"), globals["out"])
}

func TestScriptReadBytesTimeout(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{})

	globals := exec(t, r, `
open(1000000)
set_timeout(5)
feed("ab")
data, ok = read_bytes(4)
`)
	assert.Equal(t, starlark.String("ab"), globals["data"])
	assert.Equal(t, starlark.False, globals["ok"])
}

func TestScriptLoopback(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{Loopback: true})

	globals := exec(t, r, `
open(1000000)
set_timeout(5)
write("ping")
data, ok = read_bytes(4)
`)
	assert.Equal(t, starlark.String("ping"), globals["data"])
	assert.Equal(t, starlark.True, globals["ok"])
}

func TestScriptAttachAndRaise(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{})

	globals := exec(t, r, `
open(1000000)
hits = []
def on_adc():
    hits.append(millis())

attach(ADC, on_adc)
raise_irq(ADC)
raise_irq(ADC)
attach(ADC, None)
raise_irq(ADC)
count = len(hits)
`)
	assert.Equal(t, starlark.MakeInt(2), globals["count"])
}

func TestScriptHandlerError(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{})

	_, err := r.Exec("bad.star", []byte(`
open(1000000)
def broken():
    return 1 // 0

attach(INT0, broken)
raise_irq(INT0)
`))
	assert.ErrorIs(t, err, ErrHandler)
}

func TestScriptTime(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{})

	globals := exec(t, r, `
open(1000000)
start = millis()
delay(50)
elapsed = millis() - start
`)
	elapsed, ok := globals["elapsed"].(starlark.Int).Int64()
	require.True(t, ok)
	// 393 coarse ticks of 0.127ms
	assert.InDelta(t, 50, elapsed, 2)
}

func TestScriptPrintGoesToWriter(t *testing.T) {
	r, _, out := newRunner(t, sim.Config{})

	exec(t, r, `print("scenario", 1)`)
	assert.Equal(t, "scenario 1\n", out.String())
}

func TestScriptSerialErrors(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{})

	_, err := r.Exec("closed.star", []byte(`write("x")`))
	assert.ErrorContains(t, err, core.ErrClosed.Error())

	_, err = r.Exec("rate.star", []byte(`open(0)`))
	assert.ErrorContains(t, err, core.ErrInvalidRate.Error())
}

func TestScriptCycleLimit(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{MaxCycles: 1000})

	_, err := r.Exec("spin.star", []byte(`run(5000)`))
	assert.ErrorIs(t, err, sim.ErrCycleLimit)
}

func TestScriptSyntaxError(t *testing.T) {
	r, _, _ := newRunner(t, sim.Config{})

	_, err := r.Exec("syntax.star", []byte(`open(`))
	assert.Error(t, err)
}
