// Package sweeper removes anonymous users that have been idle past their TTL.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is how often the sweeper runs when no interval is given.
const DefaultInterval = 5 * time.Minute

// IdleUserStore deletes idle users and reports which ones were removed.
type IdleUserStore interface {
	DeleteIdleUsers(ctx context.Context, ttl time.Duration) ([]string, error)
}

// CleanupCallback is called for every user the sweeper removes.
type CleanupCallback func(userID string)

// Start runs a background goroutine that sweeps idle users every interval
// until ctx is cancelled.
func Start(ctx context.Context, store IdleUserStore, ttl, interval time.Duration, onCleanup CleanupCallback) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Idle user sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				Sweep(ctx, store, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("Idle user sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep runs one pass and returns the number of users removed.
func Sweep(ctx context.Context, store IdleUserStore, ttl time.Duration, onCleanup CleanupCallback) int {
	removed, err := store.DeleteIdleUsers(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Idle user sweep interrupted", "error", err)
			return 0
		}
		slog.Error("Idle user sweep failed", "error", err)
		return 0
	}
	if len(removed) == 0 {
		return 0
	}

	for _, userID := range removed {
		slog.Info("Idle user removed", "user_id", userID)
		if onCleanup != nil {
			onCleanup(userID)
		}
	}
	slog.Info("Idle user sweep completed", "removed", len(removed))
	return len(removed)
}
