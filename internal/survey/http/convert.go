package http

import (
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

func toAuditLogs(in []domain.AuditLog) []surveysdk.AuditLog {
	out := make([]surveysdk.AuditLog, 0, len(in))
	for _, e := range in {
		out = append(out, surveysdk.AuditLog{
			ID:               e.ID,
			SessionID:        e.SessionID,
			UserID:           e.UserID,
			Action:           e.Action,
			Resource:         e.Resource,
			ResourceID:       e.ResourceID,
			FormSubmissionID: e.FormSubmissionID,
			IPAddress:        e.IPAddress,
			UserAgent:        e.UserAgent,
			Details:          e.Details,
			RequestData:      e.RequestData,
			RiskLevel:        string(e.RiskLevel),
			Success:          e.Success,
			ErrorMessage:     e.ErrorMessage,
			ResponseCode:     e.ResponseCode,
			ProcessingTimeMs: e.ProcessingTimeMs,
			CreatedAt:        e.CreatedAt,
		})
	}
	return out
}

func toIncidents(in []domain.SecurityIncident) []surveysdk.SecurityIncident {
	out := make([]surveysdk.SecurityIncident, 0, len(in))
	for _, inc := range in {
		out = append(out, surveysdk.SecurityIncident{
			ID:                inc.ID,
			IncidentType:      inc.Type,
			Severity:          string(inc.Severity),
			IPAddress:         inc.IPAddress,
			UserAgent:         inc.UserAgent,
			SessionID:         inc.SessionID,
			Description:       inc.Description,
			RequestData:       inc.RequestData,
			AffectedResources: inc.AffectedResources,
			CreatedAt:         inc.CreatedAt,
		})
	}
	return out
}

func toCounts(in []domain.CountBy) []surveysdk.CountBy {
	out := make([]surveysdk.CountBy, 0, len(in))
	for _, c := range in {
		out = append(out, surveysdk.CountBy{Key: c.Key, Count: c.Count})
	}
	return out
}

func toStatistics(s domain.AuditStatistics) surveysdk.AuditStatistics {
	incs := make([]surveysdk.IncidentCount, 0, len(s.Incidents))
	for _, c := range s.Incidents {
		incs = append(incs, surveysdk.IncidentCount{
			IncidentType: c.Type,
			Severity:     string(c.Severity),
			Count:        c.Count,
		})
	}
	return surveysdk.AuditStatistics{
		TotalLogs:      s.TotalLogs,
		RiskLevelStats: toCounts(s.ByRiskLevel),
		ActionStats:    toCounts(s.TopActions),
		IncidentStats:  incs,
		Period:         s.Period,
	}
}

func toSubmission(s domain.Submission) surveysdk.Submission {
	return surveysdk.Submission{
		ID:             s.ID,
		SubscriptionID: s.SubscriptionID,
		Email:          s.Email,
		Data:           s.Data,
		Status:         s.Status,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		SubmittedAt:    s.SubmittedAt,
		LastAccessedAt: s.LastAccessedAt,
		AccessCount:    s.AccessCount,
	}
}
