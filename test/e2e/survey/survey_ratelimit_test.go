package survey_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitSubmitEndpoint verifies the submit limit of 5 requests per
// minute and that rejections are recorded as incidents.
func TestRateLimitSubmitEndpoint(t *testing.T) {
	baseURL, cleanup := setupSurveyContainer(t, nil)
	defer cleanup()

	client := newClient(baseURL)
	ctx := t.Context()

	var lastErr error
	for i := range 6 {
		_, err := client.Submit(ctx, "", validForm("anna@example.pl"))
		require.Error(t, err)
		if i < 5 {
			require.True(t, surveysdk.IsForbidden(err), "request %d should fail the token check, got %v", i+1, err)
			continue
		}
		lastErr = err
	}

	require.True(t, surveysdk.IsRateLimited(lastErr), "6th request should be rate limited, got %v", lastErr)
	var apiErr *surveysdk.APIError
	require.ErrorAs(t, lastErr, &apiErr)
	require.Positive(t, apiErr.RetryAfter)

	session := adminLogin(t, client)

	// Audit writes are queued, so give the worker a moment.
	require.Eventually(t, func() bool {
		stats, err := session.Statistics(ctx, 1)
		if err != nil {
			return false
		}
		kinds := map[string]bool{}
		for _, inc := range stats.IncidentStats {
			kinds[inc.IncidentType] = true
		}
		return kinds["RATE_LIMIT_EXCEEDED"] && kinds["SECURITY_CHECK_FAILED"]
	}, 5*time.Second, 100*time.Millisecond)
}
