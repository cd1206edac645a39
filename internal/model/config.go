// Package model defines the configuration structures used to initialize the
// laser controller system, loaded from a YAML file such as configs/config.yml.
package model

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Engine  EngineConfig  `yaml:"engine"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// SerialConfig describes the link to the laser controller.
type SerialConfig struct {
	Port       string `yaml:"port"`       // e.g. /dev/ttyUSB0 or COM1
	Baud       int    `yaml:"baud"`       // controller default is 115200
	TimeoutMs  int    `yaml:"timeout_ms"` // worst case reply latency
	Terminator string `yaml:"terminator"` // command line terminator, "\n" when empty
}

// EngineConfig tunes the command engine.
type EngineConfig struct {
	GetRetries int `yaml:"get_retries"` // extra attempts for a timed out get; sets are never retried
}

// LogConfig selects level and sinks of the structured logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"` // console handler instead of JSON
	File        string `yaml:"file"`        // rotated log file; stdout when empty
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
}

// JournalConfig controls recording of wire exchanges.
type JournalConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`        // BoltDB file; memory only when empty
	MemorySize int    `yaml:"memory_size"` // exchanges kept in memory
	MaxEntries int    `yaml:"max_entries"` // exchanges kept on disk; unbounded when 0
}

// MonitorConfig defines the HTTP/websocket monitor.
type MonitorConfig struct {
	Addr      string `yaml:"addr"`       // e.g. ":10000"; disabled when empty
	JWTSecret string `yaml:"jwt_secret"` // HMAC secret guarding set requests; open when empty
}

const (
	DefaultBaud       = 115200
	DefaultTimeout    = time.Second
	DefaultTerminator = "\n"
	DefaultMemorySize = 256
	DefaultMaxEntries = 100000
)

// Timeout returns the configured reply timeout.
func (s SerialConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// DefaultConfig returns the settings the controller ships with.
func DefaultConfig() Config {
	return Config{
		Serial: SerialConfig{
			Baud:       DefaultBaud,
			TimeoutMs:  int(DefaultTimeout / time.Millisecond),
			Terminator: DefaultTerminator,
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
		Journal: JournalConfig{
			MemorySize: DefaultMemorySize,
			MaxEntries: DefaultMaxEntries,
		},
	}
}

// LoadConfig reads the YAML file at path on top of DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values LoadConfig cannot default.
func (c *Config) Validate() error {
	var errs []error
	if c.Serial.Port == "" {
		errs = append(errs, errors.New("serial.port is required"))
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.Serial.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("serial.timeout_ms must be positive, got %d", c.Serial.TimeoutMs))
	}
	if c.Serial.Terminator == "" {
		c.Serial.Terminator = DefaultTerminator
	}
	if c.Engine.GetRetries < 0 {
		errs = append(errs, fmt.Errorf("engine.get_retries must not be negative, got %d", c.Engine.GetRetries))
	}
	if c.Journal.MemorySize < 0 {
		errs = append(errs, fmt.Errorf("journal.memory_size must not be negative, got %d", c.Journal.MemorySize))
	}
	if c.Journal.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("journal.max_entries must not be negative, got %d", c.Journal.MaxEntries))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
