package sqlite

import (
	"context"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
)

type subscriptionsRepo struct {
	db dbtx
}

func (r *subscriptionsRepo) CreateSubscription(ctx context.Context, s domain.Subscription) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO subscriptions
		(id, email, accepted_terms, accepted_contact, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Email, boolToInt(s.AcceptedTerms), boolToInt(s.AcceptedContact),
		s.Status, toMillis(s.CreatedAt), toMillis(s.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *subscriptionsRepo) UpsertSubscription(ctx context.Context, s domain.Subscription) (domain.Subscription, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO subscriptions
		(id, email, accepted_terms, accepted_contact, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			accepted_terms = excluded.accepted_terms,
			accepted_contact = excluded.accepted_contact,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		s.ID, s.Email, boolToInt(s.AcceptedTerms), boolToInt(s.AcceptedContact),
		s.Status, toMillis(s.CreatedAt), toMillis(s.UpdatedAt),
	)
	if err != nil {
		return domain.Subscription{}, mapConstraint(err)
	}
	return r.GetSubscriptionByEmail(ctx, s.Email)
}

func (r *subscriptionsRepo) GetSubscriptionByEmail(ctx context.Context, email string) (domain.Subscription, error) {
	var (
		s                domain.Subscription
		terms, contact   int
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, email, accepted_terms, accepted_contact,
		status, created_at, updated_at FROM subscriptions WHERE email = ?`, email).Scan(
		&s.ID, &s.Email, &terms, &contact, &s.Status, &created, &updated,
	)
	if err != nil {
		return domain.Subscription{}, mapNotFound(err)
	}
	s.AcceptedTerms = terms != 0
	s.AcceptedContact = contact != 0
	s.CreatedAt = fromMillis(created)
	s.UpdatedAt = fromMillis(updated)
	return s, nil
}
