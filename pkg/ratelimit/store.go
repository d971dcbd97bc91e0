package ratelimit

import (
	"context"
	"time"
)

// Counter is the state of one identifier's current window.
type Counter struct {
	Identifier  string
	Count       int
	WindowStart time.Time
	ResetAt     time.Time
}

// Store persists counters and temporary blocks. Increment must apply the
// fixed-window step atomically per identifier.
type Store interface {
	// Increment starts a fresh window at count 1 when none exists or the
	// previous one has elapsed, otherwise adds one to the count.
	Increment(ctx context.Context, id string, window time.Duration, now time.Time) (Counter, error)

	// Block rejects id until the given time.
	Block(ctx context.Context, id string, until time.Time) error

	// BlockedUntil returns the block expiry for id, if a block is active at now.
	BlockedUntil(ctx context.Context, id string, now time.Time) (time.Time, bool, error)

	// Cleanup drops elapsed windows and expired blocks, returning how many
	// entries were removed.
	Cleanup(ctx context.Context, now time.Time) (int, error)
}
