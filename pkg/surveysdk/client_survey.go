package surveysdk

import (
	"context"
	"net/http"
)

// CSRFToken fetches a registered token bound to the client's fingerprint.
func (c *Client) CSRFToken(ctx context.Context) (*CSRFTokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/csrf-token", nil, nil)
	if err != nil {
		return nil, err
	}

	var out CSRFTokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterCSRF registers a token the client generated itself.
func (c *Client) RegisterCSRF(ctx context.Context, token string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/register-csrf",
		RegisterCSRFRequest{Token: token}, nil)
	if err != nil {
		return err
	}

	var out SuccessResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// Submit sends a completed questionnaire protected by csrfToken. The token
// is spent by the call whatever the outcome.
func (c *Client) Submit(ctx context.Context, csrfToken string, form map[string]any) (*SubmitResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/secure-submit", form,
		map[string]string{HeaderCSRFToken: csrfToken})
	if err != nil {
		return nil, err
	}

	var out SubmitResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Subscribe signs an address up for contact, optionally with answers.
// An address that is already registered yields a 409 APIError.
func (c *Client) Subscribe(ctx context.Context, form map[string]any) (*SubscribeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/subscribe-v2", form, nil)
	if err != nil {
		return nil, err
	}

	var out SubscribeResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}
