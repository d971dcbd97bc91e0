package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
)

const (
	DefaultWindowDays    = 30
	DefaultRetentionDays = 365
	topActions           = 10
)

func (l *Logger) since(days int) (time.Time, int) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	return l.now().UTC().AddDate(0, 0, -days), days
}

// AuditTrail returns every entry whose resource or form submission id is
// resourceID, newest first.
func (l *Logger) AuditTrail(ctx context.Context, resourceID string) ([]domain.AuditLog, error) {
	logs, err := l.store.AuditLogs().ListAuditLogsByResource(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("audit trail: %w", err)
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}
	return logs, nil
}

// IncidentsByIP returns incidents from ip over the last days (default 30).
func (l *Logger) IncidentsByIP(ctx context.Context, ip string, days int) ([]domain.SecurityIncident, error) {
	since, _ := l.since(days)
	incs, err := l.store.SecurityIncidents().ListSecurityIncidentsByIP(ctx, ip, since)
	if err != nil {
		return nil, fmt.Errorf("incidents by ip: %w", err)
	}
	if incs == nil {
		incs = []domain.SecurityIncident{}
	}
	return incs, nil
}

// Statistics aggregates the last days (default 30) of activity.
func (l *Logger) Statistics(ctx context.Context, days int) (domain.AuditStatistics, error) {
	since, days := l.since(days)
	logs := l.store.AuditLogs()

	total, err := logs.CountAuditLogsSince(ctx, since)
	if err != nil {
		return domain.AuditStatistics{}, fmt.Errorf("count audit logs: %w", err)
	}
	byRisk, err := logs.CountAuditLogsByRiskSince(ctx, since)
	if err != nil {
		return domain.AuditStatistics{}, fmt.Errorf("count by risk: %w", err)
	}
	actions, err := logs.TopAuditActionsSince(ctx, since, topActions)
	if err != nil {
		return domain.AuditStatistics{}, fmt.Errorf("top actions: %w", err)
	}
	incidents, err := l.store.SecurityIncidents().CountSecurityIncidentsSince(ctx, since)
	if err != nil {
		return domain.AuditStatistics{}, fmt.Errorf("count incidents: %w", err)
	}

	return domain.AuditStatistics{
		TotalLogs:   total,
		ByRiskLevel: byRisk,
		TopActions:  actions,
		Incidents:   incidents,
		Period:      fmt.Sprintf("%d days", days),
	}, nil
}

// Cleanup deletes low and medium risk entries older than retentionDays
// (default 365) and records an AUDIT_CLEANUP entry. High and critical
// entries are never deleted.
func (l *Logger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := l.now().UTC().AddDate(0, 0, -retentionDays)

	n, err := l.store.AuditLogs().DeleteAuditLogsBefore(ctx, cutoff,
		[]domain.RiskLevel{domain.RiskLow, domain.RiskMedium})
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}

	slogx.FromContext(ctx).Info("audit cleanup",
		slog.Int64("deleted", n),
		slog.Int("retention_days", retentionDays),
	)
	l.Log(ctx, domain.AuditLog{
		Action:   domain.ActionAuditCleanup,
		Resource: "AuditLog",
		Details: map[string]any{
			"deletedCount":  n,
			"cutoffDate":    cutoff.Format(time.RFC3339),
			"retentionDays": retentionDays,
		},
		RiskLevel: domain.RiskLow,
		Success:   true,
	})
	return n, nil
}
