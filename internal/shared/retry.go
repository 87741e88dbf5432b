package shared

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryOnConflict runs fn up to attempts times. It retries only on SQLite
// conflict errors, doubling the delay from baseDelay after each failure.
func RetryOnConflict(ctx context.Context, op string, attempts int, baseDelay time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsSQLiteConflictError(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms with the defaults
		slog.Debug("SQLite conflict, retrying",
			"op", op,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s after %d attempts: %w", op, attempts, lastErr)
}
