package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event IDs already ran their
// handlers, so the outbox's at-least-once delivery does not double
// apply side effects like milestone payouts.
type IdempotencyStore interface {
	// MarkProcessed atomically claims an event ID for the given TTL.
	// It reports true when this call claimed it, false when a live
	// claim already existed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}

// IdempotencyConfig tunes the dedup window for event handlers.
type IdempotencyConfig struct {
	// TTL bounds how long an event ID stays claimed. After it lapses
	// the same ID would run again, so it must comfortably exceed the
	// outbox's longest retry horizon.
	TTL time.Duration

	Enabled bool
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
