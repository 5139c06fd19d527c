// Package config loads the optional YAML overrides for the rv64sim CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the set of overrides the CLI's -config flag can load. It
// never touches the core's fixed memory map (spec.md §3); it only
// tunes host-side behavior.
type Config struct {
	// UARTEcho, when true, sends UART THR writes to standard output
	// (the default behavior); when false, THR writes are discarded.
	UARTEcho bool `yaml:"uart_echo"`

	// TraceLevel selects the slog level used for per-trap and
	// per-interrupt tracing: "debug", "info", "warn", or "error".
	TraceLevel string `yaml:"trace_level"`
}

// Default returns the configuration used when no -config file is given.
func Default() Config {
	return Config{
		UARTEcho:   true,
		TraceLevel: "info",
	}
}

// Load reads and parses a YAML config file, starting from Default()
// so a file that only overrides one field leaves the rest intact.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
