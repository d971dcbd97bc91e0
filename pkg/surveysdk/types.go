package surveysdk

import "time"

// ============================================================================
// Common Types
// ============================================================================

// ErrorResponse is the body of every error reply. Messages are Polish and
// meant for display.
type ErrorResponse struct {
	Error string `json:"error"`

	// Details carries field level hints, when there are any.
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse acknowledges an operation without a payload.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// CSRF Types
// ============================================================================

// CSRFTokenResponse is returned by GET /api/csrf-token. The token is already
// registered and must be sent back in the X-CSRF-Token header.
type CSRFTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterCSRFRequest registers a client generated token.
type RegisterCSRFRequest struct {
	Token string `json:"token"`

	// Fingerprint optionally binds the token to a client signature. The
	// X-Client-Fingerprint header is used when this is empty.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// ============================================================================
// Survey Types
// ============================================================================

// SubmitResponse is returned by POST /api/secure-submit.
type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// ID of the stored submission. Empty when a bot was quietly turned away.
	ID string `json:"id,omitempty"`
}

// SubscribeResponse is returned by POST /api/subscribe-v2.
type SubscribeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// SubmissionID is the stored submission, or the subscription for a
	// newsletter-only signup.
	SubmissionID string `json:"submissionId"`
}

// Submission is a stored questionnaire as seen by administrators.
type Submission struct {
	ID             string         `json:"id"`
	SubscriptionID string         `json:"subscriptionId"`
	Email          string         `json:"email"`
	Data           map[string]any `json:"data"`
	Status         string         `json:"status"`
	IPAddress      string         `json:"ipAddress,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
	SubmittedAt    time.Time      `json:"submittedAt"`
	LastAccessedAt *time.Time     `json:"lastAccessedAt,omitempty"`
	AccessCount    int            `json:"accessCount"`
}

// ============================================================================
// Admin Types
// ============================================================================

// AdminLoginRequest authenticates the administrator.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// Code is the current TOTP code, required when a second factor is set up.
	Code string `json:"code,omitempty"`
}

// AdminLoginResponse carries a bearer session token.
type AdminLoginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	Scopes      []string `json:"scopes"`
}

// AuditLog is one audit record.
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
	RiskLevel        string         `json:"riskLevel"`
	Success          bool           `json:"success"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
	ResponseCode     *int           `json:"responseCode,omitempty"`
	ProcessingTimeMs *int64         `json:"processingTimeMs,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// AuditTrailResponse lists every record for one resource, newest first.
type AuditTrailResponse struct {
	ResourceID string     `json:"resourceId"`
	Logs       []AuditLog `json:"logs"`
}

// SecurityIncident is one recorded incident.
type SecurityIncident struct {
	ID                string         `json:"id"`
	IncidentType      string         `json:"incidentType"`
	Severity          string         `json:"severity"`
	IPAddress         string         `json:"ipAddress,omitempty"`
	UserAgent         string         `json:"userAgent,omitempty"`
	SessionID         string         `json:"sessionId,omitempty"`
	Description       string         `json:"description"`
	RequestData       map[string]any `json:"requestData,omitempty"`
	AffectedResources []string       `json:"affectedResources,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// IncidentsResponse lists incidents from one IP address.
type IncidentsResponse struct {
	IPAddress string             `json:"ipAddress"`
	Days      int                `json:"days"`
	Incidents []SecurityIncident `json:"incidents"`
}

// CountBy is one group of an aggregate.
type CountBy struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// IncidentCount groups incidents by type and severity.
type IncidentCount struct {
	IncidentType string `json:"incidentType"`
	Severity     string `json:"severity"`
	Count        int    `json:"count"`
}

// AuditStatistics summarises recent activity.
type AuditStatistics struct {
	TotalLogs      int             `json:"totalLogs"`
	RiskLevelStats []CountBy       `json:"riskLevelStats"`
	ActionStats    []CountBy       `json:"actionStats"`
	IncidentStats  []IncidentCount `json:"incidentStats"`
	Period         string          `json:"period"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status is "ok" or "degraded".
	Status string `json:"status"`

	// Uptime is the service uptime as a duration string.
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	// Checks is only set by /readyz.
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each dependency.
type HealthChecks struct {
	// Database is the relational store.
	Database string `json:"database"`

	// Cache is the shared token and counter store, "disabled" when the
	// service keeps them in memory.
	Cache string `json:"cache"`

	// Audit reports dropped or failed audit writes. It never fails readiness.
	Audit string `json:"audit"`
}
