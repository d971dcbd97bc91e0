package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/service"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/sanitize"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

type SubmitHandler struct {
	SubmissionService *service.SubmissionService
	Audit             *audit.Logger
	Now               func() time.Time
}

// ServeHTTP godoc
//
//	@Summary		Submit Questionnaire
//	@Description	Stores a completed questionnaire. Requires a token from GET /api/csrf-token, which
//	@Description	is spent by the request. The contact address is subscribed, or its consents
//	@Description	updated, in the same transaction.
//	@Tags			Survey
//	@Accept			json
//	@Produce		json
//	@Security		CSRFToken
//	@Param			request	body		object						true	"contactEmail, zgodaPrzetwarzanie, zgodaKontakt and the answers"
//	@Success		200		{object}	surveysdk.SubmitResponse	"success, message, id"
//	@Failure		400		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		403		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		413		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		429		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		500		{object}	surveysdk.ErrorResponse		"error"
//	@Router			/api/secure-submit [post].
func (h *SubmitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	a := surveyAudit{log: h.Audit, r: r, resource: "secure-submit", now: h.Now, start: h.Now()}

	raw, reason, ok := decodeForm(w, r)
	if !ok {
		a.validationFailed(reason)
		return
	}

	a.record(domain.AuditLog{
		Action: domain.ActionFormAccess,
		Details: map[string]any{
			"endpoint":      r.URL.Path,
			"hasEmail":      raw[service.FieldContactEmail] != nil,
			"hasAgreements": raw[service.FieldConsentProcessing] != nil && raw[service.FieldConsentContact] != nil,
		},
		RiskLevel: domain.RiskLow,
		Success:   true,
	})

	// Bots get the normal success reply.
	if sanitize.Honeypot(raw) {
		log.Warn("bot detected via honeypot field")
		honeypotTripped(ctx, h.Audit, r)
		httpx.WriteJSON(w, http.StatusOK, surveysdk.SubmitResponse{Success: true, Message: msgSubmitSuccess})
		return
	}

	in, err := service.ParseSubmission(raw, false, h.Now())
	if err != nil {
		msg, reason := validationFailure(err)
		a.validationFailed(reason)
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	suspiciousInput(ctx, h.Audit, r, in.Detections)

	in.IPAddress = httpx.ClientIP(r)
	in.UserAgent = r.UserAgent()

	sub, err := h.SubmissionService.Submit(ctx, in)
	if err != nil {
		log.Error("failed to store submission", "err", err)
		a.record(domain.AuditLog{
			Action:       domain.ActionSubmissionError,
			Details:      map[string]any{"error": err.Error()},
			RiskLevel:    domain.RiskHigh,
			Success:      false,
			ErrorMessage: err.Error(),
			ResponseCode: intPtr(http.StatusInternalServerError),
		})
		httpx.WriteError(w, http.StatusInternalServerError, httpx.MsgUnexpected)
		return
	}

	a.record(domain.AuditLog{
		Action:           domain.ActionSubmissionSuccess,
		ResourceID:       sub.ID,
		FormSubmissionID: sub.ID,
		Details: map[string]any{
			"email":      sub.Email,
			"fieldCount": len(sub.Data),
		},
		RiskLevel:    domain.RiskLow,
		Success:      true,
		ResponseCode: intPtr(http.StatusOK),
	})

	httpx.WriteJSON(w, http.StatusOK, surveysdk.SubmitResponse{
		Success: true,
		Message: msgSubmitSuccess,
		ID:      sub.ID,
	})
}
