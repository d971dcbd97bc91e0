package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so that a transaction can only be opened from the
// root, never from inside another transaction.
type Store interface {
	AuditLogs() AuditLogs
	SecurityIncidents() SecurityIncidents
	Submissions() Submissions
	Subscriptions() Subscriptions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type AuditLogs interface {
	// CreateAuditLog appends an entry. Rows are never updated.
	CreateAuditLog(ctx context.Context, e domain.AuditLog) error

	// ListAuditLogsByResource matches resource_id or form_submission_id,
	// newest first.
	ListAuditLogsByResource(ctx context.Context, resourceID string) ([]domain.AuditLog, error)

	CountAuditLogsSince(ctx context.Context, since time.Time) (int, error)
	CountAuditLogsByRiskSince(ctx context.Context, since time.Time) ([]domain.CountBy, error)

	// TopAuditActionsSince returns at most limit actions, most frequent first.
	TopAuditActionsSince(ctx context.Context, since time.Time, limit int) ([]domain.CountBy, error)

	// DeleteAuditLogsBefore removes entries older than cutoff whose risk level
	// is one of levels, returning the number of rows removed.
	DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time, levels []domain.RiskLevel) (int64, error)
}

type SecurityIncidents interface {
	CreateSecurityIncident(ctx context.Context, inc domain.SecurityIncident) error

	// ListSecurityIncidentsByIP returns incidents at or after since, newest first.
	ListSecurityIncidentsByIP(ctx context.Context, ip string, since time.Time) ([]domain.SecurityIncident, error)

	CountSecurityIncidentsSince(ctx context.Context, since time.Time) ([]domain.IncidentCount, error)
}

type Submissions interface {
	CreateSubmission(ctx context.Context, s domain.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (domain.Submission, error)

	// TouchSubmission sets last_accessed_at and increments access_count.
	TouchSubmission(ctx context.Context, id string, at time.Time) error

	// DeleteSubmission returns ErrNotFound when no row matched.
	DeleteSubmission(ctx context.Context, id string) error
}

type Subscriptions interface {
	// CreateSubscription returns ErrAlreadyExists for a known email.
	CreateSubscription(ctx context.Context, s domain.Subscription) error

	// UpsertSubscription inserts s or refreshes the consents of the existing
	// row with the same email, returning the stored record.
	UpsertSubscription(ctx context.Context, s domain.Subscription) (domain.Subscription, error)

	GetSubscriptionByEmail(ctx context.Context, email string) (domain.Subscription, error)
}
