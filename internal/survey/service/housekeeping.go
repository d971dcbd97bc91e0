package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/pkg/csrf"
	"github.com/aussiebroadwan/alimatrix/pkg/ratelimit"
)

// HousekeepingService runs the periodic maintenance tasks on one goroutine,
// so runs never overlap. Every CleanupInterval it reclaims CSRF tokens,
// rotates aging ones and drops elapsed rate limit counters. Every
// RetentionInterval it applies the audit retention policy.
type HousekeepingService struct {
	Tokens  *csrf.Registry
	Limiter *ratelimit.Limiter
	Audit   *audit.Logger
	Logger  *slog.Logger

	CleanupInterval   time.Duration
	RetentionInterval time.Duration
	RetentionDays     int

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService fills in defaults of 5m, 1h and 365 days.
func NewHousekeepingService(tokens *csrf.Registry, limiter *ratelimit.Limiter, auditLog *audit.Logger, logger *slog.Logger,
	cleanupInterval, retentionInterval time.Duration, retentionDays int,
) *HousekeepingService {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	if retentionInterval <= 0 {
		retentionInterval = 1 * time.Hour
	}
	if retentionDays <= 0 {
		retentionDays = audit.DefaultRetentionDays
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Tokens:            tokens,
		Limiter:           limiter,
		Audit:             auditLog,
		Logger:            logger,
		CleanupInterval:   cleanupInterval,
		RetentionInterval: retentionInterval,
		RetentionDays:     retentionDays,
		stopCh:            make(chan struct{}),
		doneCh:            make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"cleanup_interval", s.CleanupInterval,
		"retention_interval", s.RetentionInterval,
	)
}

// Stop blocks until an in-progress run has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	cleanup := time.NewTicker(s.CleanupInterval)
	defer cleanup.Stop()
	retention := time.NewTicker(s.RetentionInterval)
	defer retention.Stop()

	// Run both immediately on startup
	s.Cleanup(context.Background())
	s.Retention(context.Background())

	for {
		select {
		case <-cleanup.C:
			s.Cleanup(context.Background())
		case <-retention.C:
			s.Retention(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup reclaims expired tokens, rotates aging ones and drops elapsed
// rate limit counters. Each step is independent of the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	var removed, rotated, counters int

	if s.Tokens != nil {
		removed = s.Tokens.CleanupExpired(ctx)
		rotated = len(s.Tokens.Rotate(ctx))
	}
	if s.Limiter != nil {
		counters = s.Limiter.Cleanup(ctx)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"csrf_removed", removed,
		"csrf_rotated", rotated,
		"ratelimit_removed", counters,
	)
}

// Retention applies the audit retention policy.
func (s *HousekeepingService) Retention(ctx context.Context) {
	if s.Audit == nil {
		return
	}
	n, err := s.Audit.Cleanup(ctx, s.RetentionDays)
	if err != nil {
		s.Logger.Error("audit retention failed", "error", err)
		return
	}
	s.Logger.Info("audit retention completed", "deleted", n, "retention_days", s.RetentionDays)
}
