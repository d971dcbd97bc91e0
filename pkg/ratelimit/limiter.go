// Package ratelimit implements fixed-window request counting per client
// identifier, with an optional whitelist and temporary blocklist.
//
// Windows do not slide: a client can send up to twice the limit across a
// window boundary. Store failures fail open.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Decision is the outcome of one CheckAndIncrement call.
type Decision struct {
	Allowed bool

	Limit     int
	Count     int
	Remaining int
	ResetAt   time.Time

	// RetryAfter is how long a rejected client should wait.
	RetryAfter time.Duration

	// Blocked is set when the identifier sits on the temporary blocklist.
	Blocked bool

	// Bypassed is set for whitelisted identifiers and the development bypass.
	Bypassed bool
}

// Limiter applies fixed-window limits over a Store.
type Limiter struct {
	store     Store
	now       func() time.Time
	logger    *slog.Logger
	whitelist map[string]struct{}
	blockFor  time.Duration
	bypass    bool
}

type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithWhitelist always allows the given identifiers.
func WithWhitelist(ids ...string) Option {
	return func(l *Limiter) {
		for _, id := range ids {
			if id != "" {
				l.whitelist[id] = struct{}{}
			}
		}
	}
}

// WithBlockDuration places an identifier on the blocklist for d once it
// exceeds a limit. While blocked every request is rejected regardless of the
// count.
func WithBlockDuration(d time.Duration) Option {
	return func(l *Limiter) { l.blockFor = d }
}

// WithDevelopmentBypass allows every request when enabled. Callers must only
// enable it for local development configurations.
func WithDevelopmentBypass(enabled bool) Option {
	return func(l *Limiter) { l.bypass = enabled }
}

// New builds a limiter over store. A nil store selects a fresh MemoryStore.
func New(store Store, opts ...Option) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	l := &Limiter{
		store:     store,
		now:       time.Now,
		logger:    slog.Default(),
		whitelist: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndIncrement counts one request from id against limit per window.
// The first request of a window is always allowed; later ones are allowed
// while the count stays within limit.
func (l *Limiter) CheckAndIncrement(ctx context.Context, id string, limit int, window time.Duration) Decision {
	now := l.now()

	if l.bypass {
		return Decision{Allowed: true, Bypassed: true, Limit: limit, Remaining: limit}
	}
	if _, ok := l.whitelist[id]; ok {
		return Decision{Allowed: true, Bypassed: true, Limit: limit, Remaining: limit}
	}
	if limit <= 0 || window <= 0 {
		l.logger.Warn("ratelimit: invalid limit, allowing request",
			slog.String("id", id), slog.Int("limit", limit), slog.Duration("window", window))
		return Decision{Allowed: true, Limit: limit}
	}

	if l.blockFor > 0 {
		until, blocked, err := l.store.BlockedUntil(ctx, id, now)
		if err != nil {
			l.logger.Error("ratelimit: read block, failing open", slog.String("id", id), slog.Any("err", err))
		} else if blocked {
			return Decision{
				Allowed:    false,
				Blocked:    true,
				Limit:      limit,
				ResetAt:    until,
				RetryAfter: until.Sub(now),
			}
		}
	}

	c, err := l.store.Increment(ctx, id, window, now)
	if err != nil {
		l.logger.Error("ratelimit: increment, failing open", slog.String("id", id), slog.Any("err", err))
		return Decision{Allowed: true, Limit: limit, Count: 1, Remaining: limit - 1, ResetAt: now.Add(window)}
	}

	d := Decision{
		Allowed:   c.Count <= limit,
		Limit:     limit,
		Count:     c.Count,
		Remaining: max(0, limit-c.Count),
		ResetAt:   c.ResetAt,
	}
	if d.Allowed {
		return d
	}

	d.RetryAfter = c.ResetAt.Sub(now)
	if l.blockFor > 0 {
		until := now.Add(l.blockFor)
		if err := l.store.Block(ctx, id, until); err != nil {
			l.logger.Error("ratelimit: block identifier", slog.String("id", id), slog.Any("err", err))
		} else {
			d.Blocked = true
			d.ResetAt = until
			d.RetryAfter = l.blockFor
		}
	}
	return d
}

// Cleanup evicts elapsed windows and expired blocks.
func (l *Limiter) Cleanup(ctx context.Context) int {
	n, err := l.store.Cleanup(ctx, l.now())
	if err != nil {
		l.logger.Error("ratelimit: cleanup", slog.Any("err", err))
		return 0
	}
	return n
}

// RetryAfterSeconds rounds d up to whole seconds with a floor of one, the
// form expected by the Retry-After header.
func RetryAfterSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	return max(1, s)
}
