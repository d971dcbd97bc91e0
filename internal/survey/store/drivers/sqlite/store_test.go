package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store/drivers/sqlite"
	"github.com/aussiebroadwan/alimatrix/pkg/idx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	sub := domain.Subscription{
		ID:              uuid.NewString(),
		Email:           "jan@example.pl",
		AcceptedTerms:   true,
		AcceptedContact: false,
		Status:          domain.SubscriptionStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, s.Subscriptions().CreateSubscription(ctx, sub))

	t.Run("duplicate email", func(t *testing.T) {
		dup := sub
		dup.ID = uuid.NewString()
		err := s.Subscriptions().CreateSubscription(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("upsert keeps id and refreshes consents", func(t *testing.T) {
		later := now.Add(time.Hour)
		got, err := s.Subscriptions().UpsertSubscription(ctx, domain.Subscription{
			ID:              uuid.NewString(),
			Email:           sub.Email,
			AcceptedTerms:   true,
			AcceptedContact: true,
			Status:          domain.SubscriptionStatusActive,
			CreatedAt:       later,
			UpdatedAt:       later,
		})
		require.NoError(t, err)
		require.Equal(t, sub.ID, got.ID)
		require.True(t, got.AcceptedContact)
		require.Equal(t, now, got.CreatedAt)
		require.Equal(t, later, got.UpdatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Subscriptions().GetSubscriptionByEmail(ctx, "nobody@example.pl")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSubmissions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	sub := domain.Subscription{ID: uuid.NewString(), Email: "anna@example.pl", Status: "active", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Subscriptions().CreateSubscription(ctx, sub))

	in := domain.Submission{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		Email:          sub.Email,
		Data:           map[string]any{"sciezkaWybor": "established", "dzieci": []any{map[string]any{"wiek": float64(4)}}},
		Status:         domain.SubmissionStatusSubmitted,
		IPAddress:      "203.0.113.9",
		SubmittedAt:    now,
	}
	require.NoError(t, s.Submissions().CreateSubmission(ctx, in))

	got, err := s.Submissions().GetSubmissionByID(ctx, in.ID)
	require.NoError(t, err)
	require.Equal(t, in.Data, got.Data)
	require.Nil(t, got.LastAccessedAt)
	require.Zero(t, got.AccessCount)

	accessed := now.Add(time.Minute)
	require.NoError(t, s.Submissions().TouchSubmission(ctx, in.ID, accessed))
	require.NoError(t, s.Submissions().TouchSubmission(ctx, in.ID, accessed))

	got, err = s.Submissions().GetSubmissionByID(ctx, in.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.AccessCount)
	require.NotNil(t, got.LastAccessedAt)
	require.Equal(t, accessed, *got.LastAccessedAt)

	require.NoError(t, s.Submissions().DeleteSubmission(ctx, in.ID))
	require.ErrorIs(t, s.Submissions().DeleteSubmission(ctx, in.ID), store.ErrNotFound)
	require.ErrorIs(t, s.Submissions().TouchSubmission(ctx, in.ID, accessed), store.ErrNotFound)

	_, err = s.Submissions().GetSubmissionByID(ctx, in.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuditLogs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Now().UTC().Truncate(time.Millisecond)

	code := 200
	entries := []domain.AuditLog{
		{Action: "VIEW", Resource: "FormSubmission", ResourceID: "sub-1", FormSubmissionID: "sub-1", RiskLevel: domain.RiskLow, Success: true, ResponseCode: &code, CreatedAt: base.Add(-400 * 24 * time.Hour)},
		{Action: "DELETE", Resource: "FormSubmission", ResourceID: "sub-1", RiskLevel: domain.RiskHigh, Success: true, CreatedAt: base.Add(-400 * 24 * time.Hour)},
		{Action: "FORM_SUBMISSION_SUCCESS", Resource: "secure-submit", FormSubmissionID: "sub-1", RiskLevel: domain.RiskLow, Success: true, Details: map[string]any{"childrenCount": float64(2)}, CreatedAt: base.Add(-time.Hour)},
		{Action: "VIEW", Resource: "FormSubmission", ResourceID: "sub-2", RiskLevel: domain.RiskMedium, Success: false, ErrorMessage: "boom", CreatedAt: base},
	}
	for i := range entries {
		entries[i].ID = idx.NewAt(entries[i].CreatedAt).String()
		require.NoError(t, s.AuditLogs().CreateAuditLog(ctx, entries[i]))
	}

	t.Run("trail matches either column newest first", func(t *testing.T) {
		trail, err := s.AuditLogs().ListAuditLogsByResource(ctx, "sub-1")
		require.NoError(t, err)
		require.Len(t, trail, 3)
		require.Equal(t, "FORM_SUBMISSION_SUCCESS", trail[0].Action)
		require.Equal(t, map[string]any{"childrenCount": float64(2)}, trail[0].Details)
		require.Nil(t, trail[0].ResponseCode)
	})

	t.Run("aggregates", func(t *testing.T) {
		since := base.Add(-24 * time.Hour)

		n, err := s.AuditLogs().CountAuditLogsSince(ctx, since)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		byRisk, err := s.AuditLogs().CountAuditLogsByRiskSince(ctx, since)
		require.NoError(t, err)
		require.Equal(t, []domain.CountBy{{Key: "low", Count: 1}, {Key: "medium", Count: 1}}, byRisk)

		top, err := s.AuditLogs().TopAuditActionsSince(ctx, base.Add(-500*24*time.Hour), 1)
		require.NoError(t, err)
		require.Equal(t, []domain.CountBy{{Key: "VIEW", Count: 2}}, top)
	})

	t.Run("retention keeps high risk", func(t *testing.T) {
		n, err := s.AuditLogs().DeleteAuditLogsBefore(ctx, base.Add(-365*24*time.Hour),
			[]domain.RiskLevel{domain.RiskLow, domain.RiskMedium})
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		trail, err := s.AuditLogs().ListAuditLogsByResource(ctx, "sub-1")
		require.NoError(t, err)
		require.Len(t, trail, 2)
		require.Equal(t, "DELETE", trail[1].Action)
	})
}

func TestSecurityIncidents(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	add := func(typ string, sev domain.RiskLevel, ip string, at time.Time) {
		require.NoError(t, s.SecurityIncidents().CreateSecurityIncident(ctx, domain.SecurityIncident{
			ID:                idx.NewAt(at).String(),
			Type:              typ,
			Severity:          sev,
			IPAddress:         ip,
			Description:       typ + " from " + ip,
			RequestData:       map[string]any{"endpoint": "/api/secure-submit"},
			AffectedResources: []string{"secure-submit"},
			CreatedAt:         at,
		}))
	}
	add(domain.IncidentRateLimitExceeded, domain.RiskMedium, "198.51.100.1", now.Add(-40*24*time.Hour))
	add(domain.IncidentRateLimitExceeded, domain.RiskMedium, "198.51.100.1", now.Add(-time.Hour))
	add(domain.IncidentBotDetected, domain.RiskMedium, "198.51.100.1", now)
	add(domain.IncidentRateLimitExceeded, domain.RiskMedium, "198.51.100.2", now)

	list, err := s.SecurityIncidents().ListSecurityIncidentsByIP(ctx, "198.51.100.1", now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, domain.IncidentBotDetected, list[0].Type)
	require.Equal(t, []string{"secure-submit"}, list[0].AffectedResources)
	require.Equal(t, "/api/secure-submit", list[0].RequestData["endpoint"])

	counts, err := s.SecurityIncidents().CountSecurityIncidentsSince(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []domain.IncidentCount{
		{Type: domain.IncidentRateLimitExceeded, Severity: domain.RiskMedium, Count: 2},
		{Type: domain.IncidentBotDetected, Severity: domain.RiskMedium, Count: 1},
	}, counts)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Subscriptions().CreateSubscription(ctx, domain.Subscription{
			ID: uuid.NewString(), Email: "tx@example.pl", Status: "active", CreatedAt: now, UpdatedAt: now,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Subscriptions().GetSubscriptionByEmail(ctx, "tx@example.pl")
	require.ErrorIs(t, err, store.ErrNotFound)
}
