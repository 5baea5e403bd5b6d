package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"fp51/core"
	"fp51/host/console"
	"fp51/host/link"
	"fp51/host/serial"
)

// replyTimeout bounds the wait for the answer to -send
const replyTimeout = 2 * time.Second

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud    = flag.Int("baud", core.DefaultRate, "Baud rate the board opened its channel with")
	timeout = flag.Int("timeout", 100, "Port read timeout in milliseconds")
	send    = flag.String("send", "", "Send one line, print the reply and exit")
)

func main() {
	flag.Parse()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	cfg.ReadTimeout = *timeout

	board, err := link.ConnectWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer board.Close()

	if *send != "" {
		reply, err := board.Exchange(*send, replyTimeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			board.Close()
			os.Exit(1)
		}
		fmt.Println(reply)
		return
	}

	if err := interactive(board); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		board.Close()
		os.Exit(1)
	}
}

func interactive(board *link.Board) error {
	term, err := console.Open(os.Stdin)
	if err != nil {
		return err
	}

	fmt.Printf("Connected to %s at %d baud. Ctrl-] to exit.\n", *device, *baud)
	if err := term.RawMode(); err != nil {
		return err
	}
	defer term.Restore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pumpErr := make(chan error, 1)
	go func() {
		pumpErr <- board.Pump(ctx, console.CRLFWriter{W: os.Stdout})
	}()

	keys := make(chan []byte)
	go readKeys(os.Stdin, keys)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-pumpErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case p, ok := <-keys:
			if !ok {
				return nil
			}
			p, quit := console.SplitEscape(p)
			if len(p) > 0 {
				if _, err := board.Write(p); err != nil {
					return err
				}
			}
			if quit {
				fmt.Print("\r\n")
				return nil
			}
		}
	}
}

// readKeys forwards keyboard input until stdin closes
func readKeys(r io.Reader, keys chan<- []byte) {
	defer close(keys)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p := make([]byte, n)
			copy(p, buf[:n])
			keys <- p
		}
		if err != nil {
			return
		}
	}
}
