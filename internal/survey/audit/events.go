package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
)

// Meta is the client context attached to wrapper events.
type Meta struct {
	IPAddress string
	UserAgent string
	SessionID string
	UserID    string
	Method    string
	Path      string
}

// maxRetentionIDs is how many resource ids a retention entry lists.
const maxRetentionIDs = 10

// FormAccessRisk maps a submission access type to its risk level.
func FormAccessRisk(accessType string) domain.RiskLevel {
	switch accessType {
	case domain.ActionDelete:
		return domain.RiskHigh
	case domain.ActionExport:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// LogFormAccess records an access to a stored submission and bumps its
// access counter. accessType is one of VIEW, DOWNLOAD, EXPORT or DELETE.
func (l *Logger) LogFormAccess(ctx context.Context, submissionID, accessType string, m Meta) Outcome {
	e := l.prepareEntry(domain.AuditLog{
		UserID:           m.UserID,
		SessionID:        m.SessionID,
		Action:           accessType,
		Resource:         "FormSubmission",
		ResourceID:       submissionID,
		FormSubmissionID: submissionID,
		IPAddress:        m.IPAddress,
		UserAgent:        m.UserAgent,
		Details: map[string]any{
			"timestamp": l.now().UTC().Format(time.RFC3339),
			"path":      m.Path,
			"method":    m.Method,
		},
		RiskLevel: FormAccessRisk(accessType),
		Success:   true,
	})

	return l.submit(job{kind: "form_access", run: func(ctx context.Context) error {
		if err := l.store.AuditLogs().CreateAuditLog(ctx, e); err != nil {
			return err
		}
		err := l.store.Submissions().TouchSubmission(ctx, submissionID, e.CreatedAt)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}})
}

// LogAuthEvent records LOGIN_SUCCESS, LOGIN_FAILED, LOGOUT or PASSWORD_RESET.
// A failed login also raises a FAILED_LOGIN incident.
func (l *Logger) LogAuthEvent(ctx context.Context, action string, m Meta, details map[string]any) Outcome {
	d := make(map[string]any, len(details)+1)
	for k, v := range details {
		d[k] = v
	}
	d["timestamp"] = l.now().UTC().Format(time.RFC3339)

	risk := domain.RiskLow
	if action == domain.ActionLoginFailed {
		risk = domain.RiskMedium
	}

	out := l.Log(ctx, domain.AuditLog{
		UserID:    m.UserID,
		SessionID: m.SessionID,
		Action:    action,
		Resource:  "Authentication",
		IPAddress: m.IPAddress,
		UserAgent: m.UserAgent,
		Details:   d,
		RiskLevel: risk,
		Success:   !strings.Contains(action, "FAILED"),
	})

	if action == domain.ActionLoginFailed {
		l.LogSecurityIncident(ctx, domain.SecurityIncident{
			Type:        domain.IncidentFailedLogin,
			Severity:    domain.RiskMedium,
			IPAddress:   m.IPAddress,
			UserAgent:   m.UserAgent,
			SessionID:   m.SessionID,
			Description: fmt.Sprintf("Failed login attempt from IP %s", m.IPAddress),
			RequestData: details,
		})
	}
	return out
}

// LogRateLimit records RATE_LIMITED or RATE_LIMIT_RESET for identifier on
// endpoint. A trip also raises a RATE_LIMIT_EXCEEDED incident.
func (l *Logger) LogRateLimit(ctx context.Context, identifier, endpoint, action string, m Meta) Outcome {
	risk := domain.RiskLow
	if action == domain.ActionRateLimited {
		risk = domain.RiskMedium
	}

	out := l.Log(ctx, domain.AuditLog{
		SessionID:  m.SessionID,
		Action:     action,
		Resource:   "RateLimit",
		ResourceID: identifier + ":" + endpoint,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		Details: map[string]any{
			"identifier": identifier,
			"endpoint":   endpoint,
			"timestamp":  l.now().UTC().Format(time.RFC3339),
		},
		RiskLevel: risk,
		Success:   true,
	})

	if action == domain.ActionRateLimited {
		l.LogSecurityIncident(ctx, domain.SecurityIncident{
			Type:        domain.IncidentRateLimitExceeded,
			Severity:    domain.RiskMedium,
			IPAddress:   m.IPAddress,
			UserAgent:   m.UserAgent,
			SessionID:   m.SessionID,
			Description: fmt.Sprintf("Rate limit exceeded for endpoint %s by %s", endpoint, identifier),
			RequestData: map[string]any{
				"identifier": identifier,
				"endpoint":   endpoint,
				"userAgent":  m.UserAgent,
			},
			AffectedResources: []string{endpoint},
		})
	}
	return out
}

// LogDataRetention records DATA_DELETED, DATA_ANONYMIZED or
// RETENTION_POLICY_APPLIED over resourceIDs of resourceType.
func (l *Logger) LogDataRetention(ctx context.Context, action, resourceType string, resourceIDs []string, details map[string]any) Outcome {
	d := make(map[string]any, len(details)+3)
	for k, v := range details {
		d[k] = v
	}
	ids := resourceIDs
	if len(ids) > maxRetentionIDs {
		ids = ids[:maxRetentionIDs]
	}
	d["resourceCount"] = len(resourceIDs)
	d["resourceIds"] = append([]string(nil), ids...)
	d["timestamp"] = l.now().UTC().Format(time.RFC3339)

	risk := domain.RiskMedium
	if action == domain.ActionDataDeleted {
		risk = domain.RiskHigh
	}

	return l.Log(ctx, domain.AuditLog{
		Action:    action,
		Resource:  resourceType,
		Details:   d,
		RiskLevel: risk,
		Success:   true,
	})
}
