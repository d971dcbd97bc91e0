package surveysdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// ErrSessionExpired is returned once the admin token has expired. Admin
// sessions are not refreshed; log in again.
var ErrSessionExpired = errors.New("surveysdk: admin session expired")

// Session is an authenticated admin session.
type Session struct {
	client *Client

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	scopes      map[string]bool
}

// AdminLogin authenticates the administrator and opens a Session. code is
// the current TOTP code and may be empty when no second factor is set up.
func (c *Client) AdminLogin(ctx context.Context, username, password, code string) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/admin/login", AdminLoginRequest{
		Username: username,
		Password: password,
		Code:     code,
	}, nil)
	if err != nil {
		return nil, err
	}

	var out AdminLoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &out), nil
}

func newSession(client *Client, resp *AdminLoginResponse) *Session {
	// Stop using the token 30 seconds before it actually expires.
	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second - 30*time.Second)

	scopes := make(map[string]bool, len(resp.Scopes))
	for _, s := range resp.Scopes {
		scopes[s] = true
	}

	return &Session{
		client:      client,
		accessToken: resp.AccessToken,
		expiresAt:   expiresAt,
		scopes:      scopes,
	}
}

// HasScope reports whether the session was granted scope.
func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope]
}

func (s *Session) token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !time.Now().Before(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.accessToken, nil
}

func (s *Session) doAuthRequest(ctx context.Context, method, path string, requiredScope string) (*http.Response, error) {
	if requiredScope != "" && !s.HasScope(requiredScope) {
		return nil, fmt.Errorf("surveysdk: session lacks scope %q", requiredScope)
	}
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	return s.client.doRequest(ctx, method, path, nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// AuditTrail returns every audit record for resourceID, newest first.
// Requires: audit:read scope
func (s *Session) AuditTrail(ctx context.Context, resourceID string) (*AuditTrailResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/admin/audit/"+url.PathEscape(resourceID), "audit:read")
	if err != nil {
		return nil, err
	}

	var out AuditTrailResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Incidents lists incidents from ip over the last days; zero selects the
// server default of 30.
// Requires: audit:read scope
func (s *Session) Incidents(ctx context.Context, ip string, days int) (*IncidentsResponse, error) {
	q := url.Values{"ip": {ip}}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/admin/incidents?"+q.Encode(), "audit:read")
	if err != nil {
		return nil, err
	}

	var out IncidentsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Statistics summarises the last days of activity.
// Requires: audit:read scope
func (s *Session) Statistics(ctx context.Context, days int) (*AuditStatistics, error) {
	path := "/api/admin/stats"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, "audit:read")
	if err != nil {
		return nil, err
	}

	var out AuditStatistics
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubmission returns a stored questionnaire. The access is audited.
// Requires: submissions:read scope
func (s *Session) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/admin/submissions/"+url.PathEscape(id), "submissions:read")
	if err != nil {
		return nil, err
	}

	var out Submission
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSubmission removes a stored questionnaire.
// Requires: submissions:delete scope
func (s *Session) DeleteSubmission(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/api/admin/submissions/"+url.PathEscape(id), "submissions:delete")
	if err != nil {
		return err
	}

	var out SuccessResponse
	return decodeJSON(resp, &out, http.StatusOK)
}
