package sim

import (
	"encoding/json"
	"os"
)

// Config controls the simulated machine
type Config struct {
	// CyclesPerAccess is how many machine cycles each register access costs
	CyclesPerAccess uint64 `json:"cycles_per_access"`

	// TxCycles is the time from an SBUF write to TI
	TxCycles uint64 `json:"tx_cycles"`

	// RxCycles is the shortest time between two received bytes
	RxCycles uint64 `json:"rx_cycles"`

	// WatchdogCycles is the watchdog period; 0 disables the watchdog
	WatchdogCycles uint64 `json:"watchdog_cycles"`

	// MaxCycles stops a run that never finishes by panicking with
	// ErrCycleLimit; 0 means no limit
	MaxCycles uint64 `json:"max_cycles"`

	// Loopback feeds every transmitted byte back into the receiver
	Loopback bool `json:"loopback"`
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// LoadConfig parses a JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// LoadConfigFile reads and parses a JSON configuration file
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return LoadConfig(data)
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.CyclesPerAccess == 0 {
		cfg.CyclesPerAccess = 1
	}
	if cfg.TxCycles == 0 {
		cfg.TxCycles = 10
	}
	if cfg.RxCycles == 0 {
		cfg.RxCycles = 20
	}
}
