package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"

	"fp51/core"
	"fp51/sim"
	"fp51/sim/script"
)

var (
	configPath = flag.String("config", "", "Simulator configuration file (JSON)")
	scriptPath = flag.String("script", "", "Starlark scenario to run instead of the echo sketch")
	rate       = flag.Uint("rate", core.DefaultRate, "Serial rate the echo sketch opens the channel with")
	loopback   = flag.Bool("loopback", false, "Feed transmitted bytes back into the receiver")
	maxCycles  = flag.Uint64("cycles", 0, "Stop after this many machine cycles (0 = config value)")
	debug      = flag.Bool("debug", false, "Print runtime debug messages to stderr")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	core.SetDebugWriter(func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	})
	core.SetDebugEnabled(*debug)

	out := bufio.NewWriter(os.Stdout)
	if *scriptPath != "" {
		err = runScript(cfg, *scriptPath, out)
	} else {
		board := core.DefaultBoardConfig()
		board.Rate = uint32(*rate)
		err = runEcho(cfg, board, os.Stdin, out)
	}
	if ferr := out.Flush(); err == nil {
		err = ferr
	}

	if *debug {
		core.DumpEvents()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = sim.LoadConfigFile(*configPath)
		if err != nil {
			return sim.Config{}, fmt.Errorf("failed to load config %s: %w", *configPath, err)
		}
	}
	if *loopback {
		cfg.Loopback = true
	}
	if *maxCycles != 0 {
		cfg.MaxCycles = *maxCycles
	}
	if cfg.MaxCycles == 0 {
		// an echo session that never sees a carriage return would spin
		// forever otherwise
		cfg.MaxCycles = 1 << 34
	}
	return cfg, nil
}

func runScript(cfg sim.Config, path string, out *bufio.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	m := sim.New(cfg)
	b := core.NewBoard(m, core.DefaultBoardConfig())
	m.SetInterruptHandler(b.HandleInterrupt)

	_, err = script.New(b, m, out).Exec(path, src)
	if errors.Is(err, sim.ErrCycleLimit) {
		return fmt.Errorf("scenario did not finish within %d cycles: %w", cfg.MaxCycles, err)
	}
	if err != nil {
		return err
	}

	if rest := m.TakeOutput(); len(rest) > 0 {
		fmt.Fprintf(out, "serial: %q\n", rest)
	}
	return nil
}
