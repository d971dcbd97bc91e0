package surveysdk

import (
	"net/http"
	"strings"
	"time"
)

// Header names understood by the survey service.
const (
	HeaderCSRFToken         = "X-CSRF-Token"
	HeaderClientFingerprint = "X-Client-Fingerprint"
	HeaderSessionID         = "X-Session-ID"
)

// DefaultUserAgent identifies SDK traffic. It must not match the bot
// patterns the admin API rejects.
const DefaultUserAgent = "alimatrix-surveysdk/1.0"

// Client talks to the public survey endpoints and can open an admin Session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Origin is sent on every request. The service checks it against its
	// allow-list on survey endpoints.
	Origin string

	// Fingerprint, when set, is sent as X-Client-Fingerprint so issued tokens
	// are bound to this client.
	Fingerprint string

	// SessionID, when set, is sent as X-Session-ID for audit correlation.
	SessionID string

	UserAgent string
}

// NewClient returns a client for baseURL with a 10 second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: DefaultUserAgent,
	}
}
