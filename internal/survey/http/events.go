package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/ratelimit"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
)

// requestMeta collects the audit context of r.
func requestMeta(r *http.Request) audit.Meta {
	return audit.Meta{
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
		SessionID: r.Header.Get(slogx.HeaderSessionID),
		UserID:    httpx.UserID(r.Context()),
		Method:    r.Method,
		Path:      r.URL.Path,
	}
}

// headerMap flattens r's headers for incident request data. Credentials are
// redacted by the audit logger.
func headerMap(r *http.Request) map[string]any {
	out := make(map[string]any, len(r.Header))
	for k, v := range r.Header {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

// elapsedMs returns the milliseconds since start, for ProcessingTimeMs.
func elapsedMs(now func() time.Time, start time.Time) *int64 {
	ms := now().Sub(start).Milliseconds()
	return &ms
}

func intPtr(n int) *int { return &n }

// securityEvents records failed security checks and suspicious agents as
// incidents.
type securityEvents struct {
	audit *audit.Logger
}

func (e *securityEvents) CheckFailed(r *http.Request, reason string) {
	if e.audit == nil {
		return
	}
	m := requestMeta(r)
	e.audit.LogSecurityIncident(r.Context(), domain.SecurityIncident{
		Type:        domain.IncidentSecurityCheckFailed,
		Severity:    domain.RiskMedium,
		IPAddress:   m.IPAddress,
		UserAgent:   m.UserAgent,
		SessionID:   m.SessionID,
		Description: "Security checks failed for " + r.URL.Path + " endpoint",
		RequestData: map[string]any{
			"endpoint": r.URL.Path,
			"reason":   reason,
			"headers":  headerMap(r),
		},
		AffectedResources: []string{r.URL.Path},
	})
}

func (e *securityEvents) BotDetected(r *http.Request) {
	if e.audit == nil {
		return
	}
	m := requestMeta(r)
	e.audit.LogSecurityIncident(r.Context(), domain.SecurityIncident{
		Type:        domain.IncidentBotDetected,
		Severity:    domain.RiskLow,
		IPAddress:   m.IPAddress,
		UserAgent:   m.UserAgent,
		SessionID:   m.SessionID,
		Description: "Suspicious user agent detected",
		RequestData: map[string]any{"endpoint": r.URL.Path},
	})
}

// honeypotTripped records a bot caught by the hidden form field.
func honeypotTripped(ctx context.Context, l *audit.Logger, r *http.Request) {
	if l == nil {
		return
	}
	m := requestMeta(r)
	l.LogSecurityIncident(ctx, domain.SecurityIncident{
		Type:        domain.IncidentBotDetected,
		Severity:    domain.RiskMedium,
		IPAddress:   m.IPAddress,
		UserAgent:   m.UserAgent,
		SessionID:   m.SessionID,
		Description: "Bot detected via honeypot field in " + r.URL.Path,
		RequestData: map[string]any{"endpoint": r.URL.Path},
	})
}

// suspiciousInput records form fields that matched injection patterns.
func suspiciousInput(ctx context.Context, l *audit.Logger, r *http.Request, detections []string) {
	if l == nil || len(detections) == 0 {
		return
	}
	m := requestMeta(r)
	l.LogSecurityIncident(ctx, domain.SecurityIncident{
		Type:        domain.IncidentSuspiciousInput,
		Severity:    domain.RiskMedium,
		IPAddress:   m.IPAddress,
		UserAgent:   m.UserAgent,
		SessionID:   m.SessionID,
		Description: "Injection patterns filtered from form input",
		RequestData: map[string]any{
			"endpoint":   r.URL.Path,
			"detections": detections,
		},
	})
}

// observeRateLimit audits every rejected request.
func (r *Router) observeRateLimit(req *http.Request, key string, cfg httpx.RateLimitConfig, d ratelimit.Decision) {
	if r.Audit == nil {
		return
	}
	r.Audit.LogRateLimit(req.Context(), key, req.URL.Path, domain.ActionRateLimited, requestMeta(req))
}

// recordPanic writes a high risk UNEXPECTED_ERROR entry for a recovered
// handler panic. The entry is keyed by request id.
func (r *Router) recordPanic(req *http.Request, v any) {
	if r.Audit == nil {
		return
	}
	m := requestMeta(req)
	r.Audit.Log(req.Context(), domain.AuditLog{
		UserID:       m.UserID,
		SessionID:    m.SessionID,
		Action:       domain.ActionUnexpectedError,
		Resource:     req.URL.Path,
		ResourceID:   slogx.RequestID(req.Context()),
		IPAddress:    m.IPAddress,
		UserAgent:    m.UserAgent,
		RequestData:  map[string]any{"method": m.Method, "path": m.Path},
		RiskLevel:    domain.RiskHigh,
		Success:      false,
		ErrorMessage: fmt.Sprint(v),
		ResponseCode: intPtr(http.StatusInternalServerError),
	})
}
