package surveysdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// APIError is a non-success reply from the survey service.
type APIError struct {
	StatusCode int

	// Message is the server's user facing message.
	Message string

	// RetryAfter is set from the Retry-After header on 429 replies, in seconds.
	RetryAfter int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("surveysdk: %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsRateLimited reports whether err is a 429 reply.
func IsRateLimited(err error) bool { return IsStatus(err, http.StatusTooManyRequests) }

// IsForbidden reports whether err is a 403 reply, e.g. a rejected CSRF token.
func IsForbidden(err error) bool { return IsStatus(err, http.StatusForbidden) }

// IsConflict reports whether err is a 409 reply.
func IsConflict(err error) bool { return IsStatus(err, http.StatusConflict) }

func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		apiErr.Message = er.Error
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if n, err := strconv.Atoi(ra); err == nil {
			apiErr.RetryAfter = n
		}
	}
	return apiErr
}
