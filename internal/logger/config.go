package logger

import (
	"fmt"
	"path/filepath"
)

// Config represents logging configuration
type Config struct {
	File       string `mapstructure:"file"`     // empty disables file output
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"` // debug, info, warn, error
	Console    bool   `mapstructure:"console"`
}

// DefaultConfig returns console-only info logging
func DefaultConfig() *Config {
	return &Config{
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Level:      "info",
		Console:    true,
	}
}

// SetDefaults fills zero values and returns a copy
func (cfg *Config) SetDefaults() *Config {
	c := *cfg
	if c.MaxSize == 0 {
		c.MaxSize = 100
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAge == 0 {
		c.MaxAge = 28
	}
	if c.Level == "" {
		c.Level = "info"
	}
	if c.File == "" {
		c.Console = true
	}
	return &c
}

// Validate validates logging configuration
func (cfg *Config) Validate() error {
	if cfg.File != "" && filepath.Base(cfg.File) == "." {
		return fmt.Errorf("log file must name a file")
	}
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}
	return nil
}
