package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
)

type auditLogsRepo struct {
	db dbtx
}

const auditLogColumns = `id, session_id, user_id, action, resource, resource_id, form_submission_id,
	ip_address, user_agent, details, request_data, risk_level, success, error_message,
	response_code, processing_time_ms, created_at`

func (r *auditLogsRepo) CreateAuditLog(ctx context.Context, e domain.AuditLog) error {
	details, err := encodeJSON(e.Details, len(e.Details) == 0)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	requestData, err := encodeJSON(e.RequestData, len(e.RequestData) == 0)
	if err != nil {
		return fmt.Errorf("encode request data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO audit_logs (`+auditLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		mapStringNull(e.SessionID),
		mapStringNull(e.UserID),
		e.Action,
		e.Resource,
		mapStringNull(e.ResourceID),
		mapStringNull(e.FormSubmissionID),
		mapStringNull(e.IPAddress),
		mapStringNull(e.UserAgent),
		details,
		requestData,
		string(e.RiskLevel),
		boolToInt(e.Success),
		mapStringNull(e.ErrorMessage),
		mapOptionalInt(e.ResponseCode),
		mapOptionalInt64(e.ProcessingTimeMs),
		toMillis(e.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *auditLogsRepo) ListAuditLogsByResource(ctx context.Context, resourceID string) ([]domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+auditLogColumns+` FROM audit_logs
		WHERE resource_id = ? OR form_submission_id = ?
		ORDER BY created_at DESC, id DESC`, resourceID, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditLog
	for rows.Next() {
		e, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *auditLogsRepo) CountAuditLogsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE created_at >= ?`, toMillis(since)).Scan(&n)
	return n, err
}

func (r *auditLogsRepo) CountAuditLogsByRiskSince(ctx context.Context, since time.Time) ([]domain.CountBy, error) {
	return r.countBy(ctx, `SELECT risk_level, COUNT(*) FROM audit_logs
		WHERE created_at >= ? GROUP BY risk_level ORDER BY risk_level`, toMillis(since))
}

func (r *auditLogsRepo) TopAuditActionsSince(ctx context.Context, since time.Time, limit int) ([]domain.CountBy, error) {
	return r.countBy(ctx, `SELECT action, COUNT(*) AS n FROM audit_logs
		WHERE created_at >= ? GROUP BY action ORDER BY n DESC, action ASC LIMIT ?`, toMillis(since), limit)
}

func (r *auditLogsRepo) countBy(ctx context.Context, query string, args ...any) ([]domain.CountBy, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CountBy{}
	for rows.Next() {
		var c domain.CountBy
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *auditLogsRepo) DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time, levels []domain.RiskLevel) (int64, error) {
	if len(levels) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(levels)+1)
	args = append(args, toMillis(cutoff))
	for _, l := range levels {
		args = append(args, string(l))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(levels)), ", ")

	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs
		WHERE created_at < ? AND risk_level IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(s scanner) (domain.AuditLog, error) {
	var (
		e                                        domain.AuditLog
		sessionID, userID, resourceID, formSubID sql.NullString
		ip, ua, details, requestData, errMsg     sql.NullString
		risk                                     string
		success                                  int
		responseCode, processingTime             sql.NullInt64
		createdAt                                int64
	)
	if err := s.Scan(
		&e.ID, &sessionID, &userID, &e.Action, &e.Resource, &resourceID, &formSubID,
		&ip, &ua, &details, &requestData, &risk, &success, &errMsg,
		&responseCode, &processingTime, &createdAt,
	); err != nil {
		return domain.AuditLog{}, mapNotFound(err)
	}

	var err error
	if e.Details, err = decodeJSON[map[string]any](details); err != nil {
		return domain.AuditLog{}, fmt.Errorf("decode details: %w", err)
	}
	if e.RequestData, err = decodeJSON[map[string]any](requestData); err != nil {
		return domain.AuditLog{}, fmt.Errorf("decode request data: %w", err)
	}

	e.SessionID = mapNullString(sessionID)
	e.UserID = mapNullString(userID)
	e.ResourceID = mapNullString(resourceID)
	e.FormSubmissionID = mapNullString(formSubID)
	e.IPAddress = mapNullString(ip)
	e.UserAgent = mapNullString(ua)
	e.RiskLevel = domain.RiskLevel(risk)
	e.Success = success != 0
	e.ErrorMessage = mapNullString(errMsg)
	e.ResponseCode = mapIntPtr(responseCode)
	e.ProcessingTimeMs = mapInt64Ptr(processingTime)
	e.CreatedAt = fromMillis(createdAt)
	return e, nil
}
