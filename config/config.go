// Package config implements the configuration for the wcbridge connector.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel          = "NOTICE"
	defaultCallTimeoutMillis = 300000
	defaultQueueCapacity     = 256
	defaultDialTimeoutMillis = 30000
)

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file; stdout is used if omitted.
	File string

	// Level specifies the log level.
	Level string
}

func (l *Logging) validate() error {
	lvl := strings.ToUpper(l.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level %q is invalid", l.Level)
	}
	l.Level = lvl
	return nil
}

// Debug holds the knobs that bound two otherwise-unbounded resources: a
// per-call deadline and a capped pre-connect send queue.
type Debug struct {
	// CallTimeoutMillis bounds how long an outbound JSON-RPC call waits
	// for a response before failing with ErrTimeout.
	CallTimeoutMillis int

	// QueueCapacity bounds the pre-connect send queue; Push fails with
	// ErrQueueFull beyond it.
	QueueCapacity int

	// DialTimeoutMillis bounds how long opening the relay socket may take.
	DialTimeoutMillis int
}

func (d *Debug) fixup() {
	if d.CallTimeoutMillis == 0 {
		d.CallTimeoutMillis = defaultCallTimeoutMillis
	}
	if d.QueueCapacity == 0 {
		d.QueueCapacity = defaultQueueCapacity
	}
	if d.DialTimeoutMillis == 0 {
		d.DialTimeoutMillis = defaultDialTimeoutMillis
	}
}

// CallTimeout returns Debug.CallTimeoutMillis as a Duration.
func (d *Debug) CallTimeout() time.Duration {
	return time.Duration(d.CallTimeoutMillis) * time.Millisecond
}

// DialTimeout returns Debug.DialTimeoutMillis as a Duration.
func (d *Debug) DialTimeout() time.Duration {
	return time.Duration(d.DialTimeoutMillis) * time.Millisecond
}

// Config is the wcbridge connector configuration.
type Config struct {
	Logging Logging
	Debug   Debug
}

// Default returns the configuration a library caller gets without loading
// a file: sensible defaults, logging to stdout at NOTICE.
func Default() *Config {
	cfg := &Config{
		Logging: Logging{Level: defaultLogLevel},
		Debug:   Debug{},
	}
	cfg.Debug.fixup()
	return cfg
}

// Load parses a TOML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(b)
}

// Parse parses TOML configuration bytes.
func Parse(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Logging.validate(); err != nil {
		return nil, err
	}
	cfg.Debug.fixup()
	return cfg, nil
}
