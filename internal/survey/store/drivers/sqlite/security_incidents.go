package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
)

type incidentsRepo struct {
	db dbtx
}

func (r *incidentsRepo) CreateSecurityIncident(ctx context.Context, inc domain.SecurityIncident) error {
	requestData, err := encodeJSON(inc.RequestData, len(inc.RequestData) == 0)
	if err != nil {
		return fmt.Errorf("encode request data: %w", err)
	}
	affected, err := encodeJSON(inc.AffectedResources, len(inc.AffectedResources) == 0)
	if err != nil {
		return fmt.Errorf("encode affected resources: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO security_incidents
		(id, incident_type, severity, ip_address, user_agent, session_id, description,
		 request_data, affected_resources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID,
		inc.Type,
		string(inc.Severity),
		mapStringNull(inc.IPAddress),
		mapStringNull(inc.UserAgent),
		mapStringNull(inc.SessionID),
		inc.Description,
		requestData,
		affected,
		toMillis(inc.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *incidentsRepo) ListSecurityIncidentsByIP(ctx context.Context, ip string, since time.Time) ([]domain.SecurityIncident, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, incident_type, severity, ip_address, user_agent,
		session_id, description, request_data, affected_resources, created_at
		FROM security_incidents
		WHERE ip_address = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC`, ip, toMillis(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SecurityIncident
	for rows.Next() {
		var (
			inc                   domain.SecurityIncident
			severity              string
			ipAddr, ua, sid       sql.NullString
			requestData, affected sql.NullString
			createdAt             int64
		)
		if err := rows.Scan(&inc.ID, &inc.Type, &severity, &ipAddr, &ua, &sid,
			&inc.Description, &requestData, &affected, &createdAt); err != nil {
			return nil, err
		}
		if inc.RequestData, err = decodeJSON[map[string]any](requestData); err != nil {
			return nil, fmt.Errorf("decode request data: %w", err)
		}
		if inc.AffectedResources, err = decodeJSON[[]string](affected); err != nil {
			return nil, fmt.Errorf("decode affected resources: %w", err)
		}
		inc.Severity = domain.RiskLevel(severity)
		inc.IPAddress = mapNullString(ipAddr)
		inc.UserAgent = mapNullString(ua)
		inc.SessionID = mapNullString(sid)
		inc.CreatedAt = fromMillis(createdAt)
		out = append(out, inc)
	}
	return out, rows.Err()
}

func (r *incidentsRepo) CountSecurityIncidentsSince(ctx context.Context, since time.Time) ([]domain.IncidentCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT incident_type, severity, COUNT(*) AS n
		FROM security_incidents WHERE created_at >= ?
		GROUP BY incident_type, severity
		ORDER BY n DESC, incident_type ASC, severity ASC`, toMillis(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.IncidentCount{}
	for rows.Next() {
		var (
			c        domain.IncidentCount
			severity string
		)
		if err := rows.Scan(&c.Type, &severity, &c.Count); err != nil {
			return nil, err
		}
		c.Severity = domain.RiskLevel(severity)
		out = append(out, c)
	}
	return out, rows.Err()
}
