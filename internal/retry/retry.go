// Package retry runs an operation a bounded number of times with a fixed pause
// between attempts.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config defines retry behavior
type Config struct {
	Attempts int
	Delay    time.Duration
}

// DefaultConfig returns the pipeline stage policy: 3 attempts, 3 seconds apart.
func DefaultConfig() Config {
	return Config{
		Attempts: 3,
		Delay:    3 * time.Second,
	}
}

// Do executes fn until it succeeds, the attempts are exhausted or ctx is done.
// The error of the last attempt is wrapped in the returned error.
func Do(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func(ctx context.Context) error) error {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}

		if attempt == cfg.Attempts {
			break
		}

		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.Attempts),
			zap.Duration("retry_in", cfg.Delay),
			zap.Error(lastErr))

		timer := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, cfg.Attempts, lastErr)
}
