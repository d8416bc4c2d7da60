package retry

import (
	"errors"
	"time"
)

// Config defines the staged backoff used when opening external backends.
type Config struct {
	Enabled         bool          `mapstructure:"enabled"`          // Enable retry
	InitialAttempts int           `mapstructure:"initial_attempts"` // Number of fast retries
	InitialInterval time.Duration `mapstructure:"initial_interval"` // Interval between fast retries
	SlowAttempts    int           `mapstructure:"slow_attempts"`    // Number of slow retries after the fast ones
	SlowInterval    time.Duration `mapstructure:"slow_interval"`    // Interval between slow retries
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		InitialAttempts: 3,
		InitialInterval: time.Second,
		SlowAttempts:    5,
		SlowInterval:    10 * time.Second,
	}
}

// Validate validates the retry configuration.
func (cfg *Config) Validate() error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if cfg.InitialAttempts <= 0 {
		return errors.New("initial_attempts must be greater than zero")
	}
	if cfg.SlowAttempts < 0 {
		return errors.New("slow_attempts cannot be negative")
	}
	if cfg.InitialInterval < 0 || cfg.SlowInterval < 0 {
		return errors.New("intervals cannot be negative")
	}
	return nil
}

// MaxAttempts returns the total number of attempts Execute makes
func (cfg *Config) MaxAttempts() int {
	if cfg == nil || !cfg.Enabled {
		return 1
	}
	return cfg.InitialAttempts + cfg.SlowAttempts
}
