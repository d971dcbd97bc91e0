package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/service"
	"github.com/aussiebroadwan/alimatrix/pkg/csrf"
	"github.com/aussiebroadwan/alimatrix/pkg/ratelimit"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: fixedNow}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := csrf.NewRegistry(csrf.Config{Secret: []byte("secret")}, nil,
		csrf.WithClock(clk.Now), csrf.WithLogger(quiet))
	require.NoError(t, err)
	tok, err := tokens.Issue("")
	require.NoError(t, err)
	require.True(t, tokens.Register(ctx, tok, ""))

	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.New(store, ratelimit.WithClock(clk.Now), ratelimit.WithLogger(quiet))
	limiter.CheckAndIncrement(ctx, "203.0.113.7", 10, time.Minute)
	require.Equal(t, 1, store.Len())

	hk := service.NewHousekeepingService(tokens, limiter, nil, quiet, 0, 0, 0)
	require.Equal(t, 5*time.Minute, hk.CleanupInterval)
	require.Equal(t, time.Hour, hk.RetentionInterval)
	require.Equal(t, audit.DefaultRetentionDays, hk.RetentionDays)

	clk.Advance(csrf.DefaultLifetime + time.Minute)
	hk.Cleanup(ctx)

	require.Equal(t, 0, tokens.Stats(ctx).Total)
	require.Equal(t, 0, store.Len())
}

func TestHousekeepingRotatesAgingTokens(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: fixedNow}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := csrf.NewRegistry(csrf.Config{Secret: []byte("secret")}, nil,
		csrf.WithClock(clk.Now), csrf.WithLogger(quiet))
	require.NoError(t, err)
	tok, err := tokens.Issue("fp")
	require.NoError(t, err)
	require.True(t, tokens.Register(ctx, tok, "fp"))

	hk := service.NewHousekeepingService(tokens, nil, nil, quiet, time.Minute, time.Hour, 30)
	clk.Advance(csrf.DefaultRotationAge + time.Minute)
	hk.Cleanup(ctx)

	require.False(t, tokens.Verify(ctx, tok, "fp"))
	stats := tokens.Stats(ctx)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.Valid)
}

func TestHousekeepingRetention(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: fixedNow}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := newStore(t)
	auditLog := audit.New(st, audit.WithClock(clk.Now), audit.WithLogger(quiet), audit.WithFallback(quiet))

	require.Equal(t, audit.Persisted, auditLog.Log(ctx, domain.AuditLog{
		Action: domain.ActionView, Resource: "FormSubmission", ResourceID: "old",
		RiskLevel: domain.RiskLow, Success: true,
	}))
	require.Equal(t, audit.Persisted, auditLog.Log(ctx, domain.AuditLog{
		Action: domain.ActionDelete, Resource: "FormSubmission", ResourceID: "old",
		RiskLevel: domain.RiskHigh, Success: true,
	}))

	clk.Advance(40 * 24 * time.Hour)
	hk := service.NewHousekeepingService(nil, nil, auditLog, quiet, time.Minute, time.Hour, 30)
	hk.Retention(ctx)

	trail, err := auditLog.AuditTrail(ctx, "old")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Equal(t, domain.RiskHigh, trail[0].RiskLevel)
}

func TestHousekeepingStartStop(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := service.NewHousekeepingService(nil, nil, nil, quiet, time.Millisecond, time.Millisecond, 1)
	hk.Start()
	time.Sleep(5 * time.Millisecond)
	hk.Stop()
}
