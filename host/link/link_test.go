package link

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort answers every carriage-return terminated line with reply(line)
type fakePort struct {
	mu      sync.Mutex
	written bytes.Buffer
	rx      bytes.Buffer
	reply   func(string) string
	closed  bool
	readErr error
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written.Write(b)
	if p.reply != nil {
		for {
			line, err := p.written.ReadString('\r')
			if err != nil {
				// incomplete line, put it back
				rest := []byte(line)
				p.written.Reset()
				p.written.Write(rest)
				break
			}
			p.rx.WriteString(p.reply(line[:len(line)-1]))
		}
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.rx.Len() == 0 {
		return 0, nil
	}
	return p.rx.Read(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) Flush() error { return nil }

func (p *fakePort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx.WriteString(s)
}

func TestSendLineAddsCarriageReturn(t *testing.T) {
	port := &fakePort{}
	b := New(port)

	require.NoError(t, b.SendLine("hello"))
	assert.Equal(t, "hello\r", port.written.String())

	assert.Error(t, b.SendLine("two\rlines"))
}

func TestExchange(t *testing.T) {
	port := &fakePort{reply: func(line string) string { return "echo:" + line + "\n" }}
	b := New(port)

	got, err := b.Exchange("ping", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "echo:ping", got)
}

func TestReadResponseSplitsLines(t *testing.T) {
	port := &fakePort{}
	b := New(port)
	port.feed("-123\nFF\npart")

	line, err := b.ReadResponse(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "-123", line)

	line, err = b.ReadResponse(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "FF", line)

	_, err = b.ReadResponse(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	port.feed("ial\n")
	line, err = b.ReadResponse(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "partial", line)
}

func TestReadResponsePortError(t *testing.T) {
	boom := errors.New("unplugged")
	b := New(&fakePort{readErr: boom})

	_, err := b.ReadResponse(time.Second)
	assert.ErrorIs(t, err, boom)
}

func TestClose(t *testing.T) {
	port := &fakePort{}
	b := New(port)
	require.True(t, b.IsConnected())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.True(t, port.closed)
	assert.False(t, b.IsConnected())

	_, err := b.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = b.ReadResponse(time.Millisecond)
	assert.ErrorIs(t, err, ErrNotConnected)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func TestPump(t *testing.T) {
	port := &fakePort{}
	b := New(port)
	port.feed("boot\n")

	ctx, cancel := context.WithCancel(context.Background())
	var out lockedBuffer
	done := make(chan error, 1)
	go func() { done <- b.Pump(ctx, &out) }()

	port.feed("more")
	assert.Eventually(t, func() bool {
		return out.String() == "boot\nmore"
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Pump did not stop")
	}
}

func TestPumpDrainsPendingFirst(t *testing.T) {
	port := &fakePort{}
	b := New(port)
	port.feed("line\nrest")

	_, err := b.ReadResponse(time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var out lockedBuffer
	err = b.Pump(ctx, &out)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "rest", out.String())
}
