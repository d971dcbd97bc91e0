package domain

import "time"

// RiskLevel grades an audit entry or an incident.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether r is one of the four known levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Retained reports whether entries at this level survive retention cleanup.
func (r RiskLevel) Retained() bool {
	return r == RiskHigh || r == RiskCritical
}

// Audit actions written by the application.
const (
	ActionFormAccess          = "FORM_ACCESS"
	ActionSubscriptionAccess  = "SUBSCRIPTION_ACCESS"
	ActionValidationFailed    = "VALIDATION_FAILED"
	ActionSubmissionSuccess   = "FORM_SUBMISSION_SUCCESS"
	ActionSubmissionError     = "FORM_SUBMISSION_ERROR"
	ActionSubscriptionSuccess = "SUBSCRIPTION_SUCCESS"
	ActionSubscriptionError   = "SUBSCRIPTION_ERROR"

	ActionCSRFRegistered        = "CSRF_TOKEN_REGISTERED"
	ActionCSRFRegistrationFail  = "CSRF_REGISTRATION_FAILED"
	ActionCSRFRegistrationError = "CSRF_REGISTRATION_ERROR"

	ActionView     = "VIEW"
	ActionDownload = "DOWNLOAD"
	ActionExport   = "EXPORT"
	ActionDelete   = "DELETE"

	ActionLoginSuccess  = "LOGIN_SUCCESS"
	ActionLoginFailed   = "LOGIN_FAILED"
	ActionLogout        = "LOGOUT"
	ActionPasswordReset = "PASSWORD_RESET"

	ActionRateLimited    = "RATE_LIMITED"
	ActionRateLimitReset = "RATE_LIMIT_RESET"

	ActionDataDeleted     = "DATA_DELETED"
	ActionDataAnonymized  = "DATA_ANONYMIZED"
	ActionRetentionPolicy = "RETENTION_POLICY_APPLIED"

	ActionAuditCleanup = "AUDIT_CLEANUP"

	ActionUnexpectedError = "UNEXPECTED_ERROR"
)

// AuditLog is one append-only audit record. Details and RequestData are
// already redacted when they reach the store.
type AuditLog struct {
	ID               string         `json:"id"`
	SessionID        string         `json:"sessionId,omitempty"`
	UserID           string         `json:"userId,omitempty"`
	Action           string         `json:"action"`
	Resource         string         `json:"resource"`
	ResourceID       string         `json:"resourceId,omitempty"`
	FormSubmissionID string         `json:"formSubmissionId,omitempty"`
	IPAddress        string         `json:"ipAddress,omitempty"`
	UserAgent        string         `json:"userAgent,omitempty"`
	Details          map[string]any `json:"details,omitempty"`
	RequestData      map[string]any `json:"requestData,omitempty"`
	RiskLevel        RiskLevel      `json:"riskLevel"`
	Success          bool           `json:"success"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
	ResponseCode     *int           `json:"responseCode,omitempty"`
	ProcessingTimeMs *int64         `json:"processingTimeMs,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// Incident types.
const (
	IncidentSecurityCheckFailed = "SECURITY_CHECK_FAILED"
	IncidentBotDetected         = "BOT_DETECTED"
	IncidentFailedLogin         = "FAILED_LOGIN"
	IncidentRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	IncidentSuspiciousInput     = "SUSPICIOUS_INPUT"
)

// SecurityIncident is an anomalous or policy violating event. It is never
// updated after creation.
type SecurityIncident struct {
	ID                string         `json:"id"`
	Type              string         `json:"incidentType"`
	Severity          RiskLevel      `json:"severity"`
	IPAddress         string         `json:"ipAddress,omitempty"`
	UserAgent         string         `json:"userAgent,omitempty"`
	SessionID         string         `json:"sessionId,omitempty"`
	Description       string         `json:"description"`
	RequestData       map[string]any `json:"requestData,omitempty"`
	AffectedResources []string       `json:"affectedResources,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// CountBy is one group of an aggregate query.
type CountBy struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// IncidentCount groups incidents by type and severity.
type IncidentCount struct {
	Type     string    `json:"incidentType"`
	Severity RiskLevel `json:"severity"`
	Count    int       `json:"count"`
}

// AuditStatistics summarises a trailing window of audit activity.
type AuditStatistics struct {
	TotalLogs   int             `json:"totalLogs"`
	ByRiskLevel []CountBy       `json:"riskLevelStats"`
	TopActions  []CountBy       `json:"actionStats"`
	Incidents   []IncidentCount `json:"incidentStats"`
	Period      string          `json:"period"`
}
