package survey_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
	"github.com/stretchr/testify/require"
)

// TestSubmitFlow walks a questionnaire from token issue to admin deletion.
func TestSubmitFlow(t *testing.T) {
	baseURL, cleanup := setupSurveyContainer(t, nil)
	defer cleanup()

	client := newClient(baseURL)
	client.Fingerprint = "e2e-browser"
	ctx := t.Context()

	tok, err := client.CSRFToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	res, err := client.Submit(ctx, tok.Token, validForm("Jan.Kowalski@Example.PL"))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.ID)

	// Tokens are single use.
	_, err = client.Submit(ctx, tok.Token, validForm("jan.kowalski@example.pl"))
	require.True(t, surveysdk.IsForbidden(err), "reused token should be rejected, got %v", err)

	session := adminLogin(t, client)

	sub, err := session.GetSubmission(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, "jan.kowalski@example.pl", sub.Email)
	require.Equal(t, "established", sub.Data["sciezkaWybor"])

	require.Eventually(t, func() bool {
		trail, err := session.AuditTrail(ctx, res.ID)
		return err == nil && len(trail.Logs) > 0
	}, 5*time.Second, 100*time.Millisecond)

	require.NoError(t, session.DeleteSubmission(ctx, res.ID))
	_, err = session.GetSubmission(ctx, res.ID)
	require.True(t, surveysdk.IsStatus(err, 404), "deleted submission should be gone, got %v", err)
}

// TestSubscribe covers the subscription endpoint including the duplicate
// and foreign origin replies.
func TestSubscribe(t *testing.T) {
	baseURL, cleanup := setupSurveyContainer(t, nil)
	defer cleanup()

	client := newClient(baseURL)
	ctx := t.Context()

	res, err := client.Subscribe(ctx, map[string]any{"email": "anna@example.pl", "acceptedTerms": true})
	require.NoError(t, err)
	require.True(t, res.Success)

	_, err = client.Subscribe(ctx, validForm("anna@example.pl"))
	require.True(t, surveysdk.IsConflict(err), "duplicate should conflict, got %v", err)

	foreign := surveysdk.NewClient(baseURL)
	foreign.Origin = "https://evil.example"
	_, err = foreign.Subscribe(ctx, validForm("ola@example.pl"))
	require.True(t, surveysdk.IsForbidden(err), "foreign origin should be rejected, got %v", err)
}
