package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Func defines the function signature for a retryable operation.
type Func func(ctx context.Context) error

// PermanentError marks an error that no retry can fix
type PermanentError struct {
	err error
}

func (e *PermanentError) Error() string {
	return e.err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.err
}

// Permanent wraps err so that Execute stops immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{err: err}
}

// IsPermanent checks if err was wrapped with Permanent
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}

// Execute runs op until it succeeds, the stages are exhausted or ctx is done.
// The fast stage runs first, then the slow one.
func Execute(ctx context.Context, cfg *Config, logger *zap.Logger, name string, op Func) error {
	// If no retry configuration is provided, just execute the operation
	if cfg == nil || !cfg.Enabled {
		return op(ctx)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stages := []struct {
		attempts int
		interval time.Duration
	}{
		{cfg.InitialAttempts, cfg.InitialInterval},
		{cfg.SlowAttempts, cfg.SlowInterval},
	}

	total := cfg.MaxAttempts()
	attempt := 0
	var lastErr error

	for _, stage := range stages {
		for i := 0; i < stage.attempts; i++ {
			attempt++
			err := op(ctx)
			if err == nil {
				return nil
			}
			lastErr = err

			if IsPermanent(err) {
				return err
			}
			if attempt == total {
				break
			}

			logger.Warn("Attempt failed, retrying",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", total),
				zap.Duration("wait", stage.interval),
				zap.Error(err))

			timer := time.NewTimer(stage.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: %w (last error: %w)", name, ctx.Err(), lastErr)
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, lastErr)
}
