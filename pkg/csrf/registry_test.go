package csrf_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/alimatrix/pkg/csrf"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRegistry(t *testing.T, cfg csrf.Config, store csrf.TokenStore) (*csrf.Registry, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	cfg.Secret = []byte("test-secret")
	r, err := csrf.NewRegistry(cfg, store, csrf.WithClock(clock.Now))
	require.NoError(t, err)
	return r, clock
}

func issue(t *testing.T, r *csrf.Registry, fp string) string {
	t.Helper()
	tok, err := r.Issue(fp)
	require.NoError(t, err)
	return tok
}

func TestIssue(t *testing.T) {
	r, _ := newRegistry(t, csrf.Config{}, nil)

	plain := issue(t, r, "")
	bound := issue(t, r, "1920x1080|Europe/Warsaw|Mozilla/5.0")

	require.GreaterOrEqual(t, len(plain), csrf.DefaultMinLength)
	require.LessOrEqual(t, len(bound), csrf.DefaultMaxLength)
	require.Len(t, strings.Split(plain, "."), 2)
	require.Len(t, strings.Split(bound, "."), 3)
	require.NotEqual(t, plain, issue(t, r, ""))
}

func TestConsumeLifecycle(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t, csrf.Config{}, nil)

	t1 := issue(t, r, "F1")
	require.True(t, r.Register(ctx, t1, "F1"))

	require.True(t, r.Verify(ctx, t1, "F1"))
	require.True(t, r.Verify(ctx, t1, "F1"), "verify must not mutate the token")

	require.True(t, r.Consume(ctx, t1))
	require.False(t, r.Verify(ctx, t1, "F1"))
	require.False(t, r.Consume(ctx, t1), "second consume must fail")
}

func TestConsumeUnknownToken(t *testing.T) {
	r, _ := newRegistry(t, csrf.Config{}, nil)
	require.False(t, r.Consume(context.Background(), strings.Repeat("a", 40)))
}

func TestRegisterRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t, csrf.Config{}, nil)

	require.False(t, r.Register(ctx, "", ""))
	require.False(t, r.Register(ctx, strings.Repeat("a", 31), ""))
	require.False(t, r.Register(ctx, strings.Repeat("a", 257), ""))
	require.True(t, r.Register(ctx, strings.Repeat("a", 32), ""))
	require.True(t, r.Register(ctx, strings.Repeat("b", 256), ""))

	require.Equal(t, 2, r.Stats(ctx).Total)
}

func TestVerifyExpiry(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{}, nil)

	tok := issue(t, r, "")
	require.True(t, r.Register(ctx, tok, ""))

	clock.Advance(csrf.DefaultLifetime)
	require.True(t, r.Verify(ctx, tok, ""), "exactly at the lifetime the token is still valid")

	clock.Advance(time.Millisecond)
	require.False(t, r.Verify(ctx, tok, ""))
	require.Equal(t, 0, r.Stats(ctx).Total, "expired token is deleted on verify")
}

func TestConsumeRejectsExpired(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{}, nil)

	tok := issue(t, r, "")
	require.True(t, r.Register(ctx, tok, ""))
	clock.Advance(csrf.DefaultLifetime + time.Second)

	require.False(t, r.Consume(ctx, tok))
}

func TestFingerprintMismatch(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t, csrf.Config{}, nil)

	tok := issue(t, r, "fpA")
	require.True(t, r.Register(ctx, tok, "fpA"))

	require.False(t, r.Verify(ctx, tok, "fpB"))
	require.True(t, r.Verify(ctx, tok, "fpA"))
	require.True(t, r.Verify(ctx, tok, ""), "fingerprint is only compared when both sides have one")

	unbound := issue(t, r, "")
	require.True(t, r.Register(ctx, unbound, ""))
	require.True(t, r.Verify(ctx, unbound, "anything"))
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{}, nil)

	old := issue(t, r, "")
	require.True(t, r.Register(ctx, old, ""))

	clock.Advance(20 * time.Minute)
	fresh := issue(t, r, "")
	require.True(t, r.Register(ctx, fresh, ""))

	used := issue(t, r, "")
	require.True(t, r.Register(ctx, used, ""))
	require.True(t, r.Consume(ctx, used))

	clock.Advance(11 * time.Minute)
	require.Equal(t, 1, r.CleanupExpired(ctx))

	// The consumed token stays as a tombstone until it expires.
	require.Equal(t, csrf.Stats{Total: 2, Used: 1, Valid: 1}, r.Stats(ctx))
	require.True(t, r.Verify(ctx, fresh, ""))
	require.False(t, r.Verify(ctx, used, ""))

	clock.Advance(10 * time.Minute)
	require.Equal(t, 2, r.CleanupExpired(ctx))
	require.Equal(t, csrf.Stats{}, r.Stats(ctx))
}

func TestRegisterEvictsOldestAtCapacity(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{MaxTokens: 10}, nil)

	var tokens []string
	for range 10 {
		tok := issue(t, r, "")
		require.True(t, r.Register(ctx, tok, ""))
		tokens = append(tokens, tok)
		clock.Advance(time.Second)
	}

	extra := issue(t, r, "")
	require.True(t, r.Register(ctx, extra, ""))

	// 20% of 10 are evicted before the insert.
	require.Equal(t, 9, r.Stats(ctx).Total)
	require.False(t, r.Verify(ctx, tokens[0], ""))
	require.False(t, r.Verify(ctx, tokens[1], ""))
	require.True(t, r.Verify(ctx, tokens[2], ""))
	require.True(t, r.Verify(ctx, extra, ""))
}

func TestEvictionKeepsConsumedTokens(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{MaxTokens: 5}, nil)

	var consumed []string
	for range 5 {
		tok := issue(t, r, "")
		require.True(t, r.Register(ctx, tok, ""))
		require.True(t, r.Consume(ctx, tok))
		consumed = append(consumed, tok)
		clock.Advance(time.Second)
	}

	extra := issue(t, r, "")
	require.True(t, r.Register(ctx, extra, ""))
	require.Equal(t, csrf.Stats{Total: 6, Used: 5, Valid: 1}, r.Stats(ctx))

	for _, tok := range consumed {
		require.False(t, r.Register(ctx, tok, ""))
	}
}

func TestRegisterRefusesExistingToken(t *testing.T) {
	ctx := context.Background()

	t.Run("consumed token", func(t *testing.T) {
		r, clock := newRegistry(t, csrf.Config{}, nil)

		tok := issue(t, r, "")
		require.True(t, r.Register(ctx, tok, ""))
		require.True(t, r.Verify(ctx, tok, ""))
		require.True(t, r.Consume(ctx, tok))

		require.False(t, r.Register(ctx, tok, ""), "consumed token cannot be registered again")
		require.False(t, r.Verify(ctx, tok, ""))
		require.False(t, r.Consume(ctx, tok))

		clock.Advance(10 * time.Minute)
		r.CleanupExpired(ctx)
		require.False(t, r.Register(ctx, tok, ""), "cleanup keeps the tombstone")
		require.False(t, r.Verify(ctx, tok, ""))
	})

	t.Run("client generated token", func(t *testing.T) {
		r, _ := newRegistry(t, csrf.Config{}, nil)

		tok := strings.Repeat("c", 48)
		require.True(t, r.Register(ctx, tok, ""))
		require.True(t, r.Consume(ctx, tok))
		require.False(t, r.Register(ctx, tok, ""))
		require.False(t, r.Verify(ctx, tok, ""))
	})

	t.Run("fingerprint rebind", func(t *testing.T) {
		r, _ := newRegistry(t, csrf.Config{}, nil)

		tok := issue(t, r, "fpA")
		require.True(t, r.Register(ctx, tok, "fpA"))

		require.False(t, r.Register(ctx, tok, "fpB"))
		require.False(t, r.Verify(ctx, tok, "fpB"))
		require.True(t, r.Verify(ctx, tok, "fpA"))
	})

	t.Run("live token keeps its issue time", func(t *testing.T) {
		r, clock := newRegistry(t, csrf.Config{}, nil)

		tok := strings.Repeat("d", 48)
		require.True(t, r.Register(ctx, tok, ""))

		clock.Advance(20 * time.Minute)
		require.False(t, r.Register(ctx, tok, ""))

		clock.Advance(11 * time.Minute)
		require.False(t, r.Verify(ctx, tok, ""))
	})
}

func TestRegisterDatesIssuedTokens(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{}, nil)

	late := issue(t, r, "")
	stale := issue(t, r, "")
	consumed := issue(t, r, "")
	require.True(t, r.Register(ctx, consumed, ""))
	require.True(t, r.Consume(ctx, consumed))

	clock.Advance(20 * time.Minute)
	require.True(t, r.Register(ctx, late, ""))
	clock.Advance(11 * time.Minute)
	require.False(t, r.Verify(ctx, late, ""), "lifetime runs from the embedded issue time")

	require.False(t, r.Register(ctx, stale, ""), "token older than the lifetime is refused")

	r.CleanupExpired(ctx)
	require.Equal(t, 0, r.Stats(ctx).Total)
	require.False(t, r.Register(ctx, consumed, ""), "expired tombstone cannot be revived")
}

func TestUsableUntilSurvivesRotation(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{}, nil)

	issuedAt := clock.Now()
	tok := issue(t, r, "")
	require.True(t, r.Register(ctx, tok, ""))

	deadline := r.UsableUntil(issuedAt)
	require.Equal(t, issuedAt.Add(csrf.DefaultRotationAge), deadline)
	require.True(t, deadline.Before(issuedAt.Add(csrf.DefaultLifetime)))

	clock.Advance(deadline.Sub(issuedAt))
	require.Empty(t, r.Rotate(ctx))
	require.True(t, r.Verify(ctx, tok, ""))

	clock.Advance(time.Millisecond)
	require.Len(t, r.Rotate(ctx), 1)
	require.False(t, r.Verify(ctx, tok, ""))
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{}, nil)

	old := issue(t, r, "fp")
	require.True(t, r.Register(ctx, old, "fp"))

	consumed := issue(t, r, "")
	require.True(t, r.Register(ctx, consumed, ""))
	require.True(t, r.Consume(ctx, consumed))

	clock.Advance(10 * time.Minute)
	young := issue(t, r, "")
	require.True(t, r.Register(ctx, young, ""))

	clock.Advance(6 * time.Minute)
	rotated := r.Rotate(ctx)
	require.Len(t, rotated, 1)
	require.Equal(t, old, rotated[0].Old)

	require.False(t, r.Verify(ctx, old, "fp"))
	require.True(t, r.Verify(ctx, rotated[0].New, "fp"))
	require.False(t, r.Verify(ctx, rotated[0].New, "other"), "replacement keeps the fingerprint binding")
	require.True(t, r.Verify(ctx, young, ""))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	r, clock := newRegistry(t, csrf.Config{}, nil)

	a := issue(t, r, "")
	require.True(t, r.Register(ctx, a, ""))
	require.True(t, r.Consume(ctx, a))

	b := issue(t, r, "")
	require.True(t, r.Register(ctx, b, ""))

	clock.Advance(31 * time.Minute)
	c := issue(t, r, "")
	require.True(t, r.Register(ctx, c, ""))

	// Register cleaned a and b before inserting c.
	require.Equal(t, csrf.Stats{Total: 1, Valid: 1}, r.Stats(ctx))

	clock.Advance(31 * time.Minute)
	require.Equal(t, csrf.Stats{Total: 1, Expired: 1}, r.Stats(ctx))
}

func TestConcurrentConsumeSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t, csrf.Config{}, nil)

	tok := issue(t, r, "")
	require.True(t, r.Register(ctx, tok, ""))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Verify(ctx, tok, "") && r.Consume(ctx, tok) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestInvalidConfig(t *testing.T) {
	_, err := csrf.NewRegistry(csrf.Config{Lifetime: time.Minute, RotationAge: time.Minute}, nil)
	require.ErrorIs(t, err, csrf.ErrInvalidConfig)
}
