package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
)

type submissionsRepo struct {
	db dbtx
}

func (r *submissionsRepo) CreateSubmission(ctx context.Context, s domain.Submission) error {
	data := s.Data
	if data == nil {
		data = map[string]any{}
	}
	encoded, err := encodeJSON(data, false)
	if err != nil {
		return fmt.Errorf("encode submission data: %w", err)
	}

	var lastAccessed sql.NullInt64
	if s.LastAccessedAt != nil {
		lastAccessed = sql.NullInt64{Int64: toMillis(*s.LastAccessedAt), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO submissions
		(id, subscription_id, email, data, status, ip_address, user_agent,
		 submitted_at, last_accessed_at, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.SubscriptionID,
		s.Email,
		encoded.String,
		s.Status,
		mapStringNull(s.IPAddress),
		mapStringNull(s.UserAgent),
		toMillis(s.SubmittedAt),
		lastAccessed,
		s.AccessCount,
	)
	return mapConstraint(err)
}

func (r *submissionsRepo) GetSubmissionByID(ctx context.Context, id string) (domain.Submission, error) {
	var (
		s            domain.Submission
		data         sql.NullString
		ip, ua       sql.NullString
		submittedAt  int64
		lastAccessed sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, subscription_id, email, data, status,
		ip_address, user_agent, submitted_at, last_accessed_at, access_count
		FROM submissions WHERE id = ?`, id).Scan(
		&s.ID, &s.SubscriptionID, &s.Email, &data, &s.Status,
		&ip, &ua, &submittedAt, &lastAccessed, &s.AccessCount,
	)
	if err != nil {
		return domain.Submission{}, mapNotFound(err)
	}

	if s.Data, err = decodeJSON[map[string]any](data); err != nil {
		return domain.Submission{}, fmt.Errorf("decode submission data: %w", err)
	}
	s.IPAddress = mapNullString(ip)
	s.UserAgent = mapNullString(ua)
	s.SubmittedAt = fromMillis(submittedAt)
	s.LastAccessedAt = mapNullMillisPtr(lastAccessed)
	return s, nil
}

func (r *submissionsRepo) TouchSubmission(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE submissions
		SET last_accessed_at = ?, access_count = access_count + 1
		WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *submissionsRepo) DeleteSubmission(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
