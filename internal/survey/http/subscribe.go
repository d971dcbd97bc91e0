package http

import (
	"errors"
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

// botSubmissionID is returned to bots instead of a real id.
const botSubmissionID = "bot-detected"

type SubscribeHandler struct {
	SubmissionService *service.SubmissionService
	Audit             *audit.Logger
	Now               func() time.Time
}

// ServeHTTP godoc
//
//	@Summary		Subscribe
//	@Description	Registers a contact address, optionally with questionnaire answers. Also accepts
//	@Description	the older email and acceptedTerms fields.
//	@Tags			Survey
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object						true	"contactEmail (or email), consents and optional answers"
//	@Success		201		{object}	surveysdk.SubscribeResponse	"success, message, submissionId"
//	@Failure		400		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		403		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		409		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		429		{object}	surveysdk.ErrorResponse		"error"
//	@Failure		500		{object}	surveysdk.ErrorResponse		"error"
//	@Router			/api/subscribe-v2 [post].
func (h *SubscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	a := surveyAudit{log: h.Audit, r: r, resource: "subscribe-v2", now: h.Now, start: h.Now()}

	raw, reason, ok := decodeForm(w, r)
	if !ok {
		a.validationFailed(reason)
		return
	}

	a.record(domain.AuditLog{
		Action: domain.ActionSubscriptionAccess,
		Details: map[string]any{
			"endpoint":      r.URL.Path,
			"hasEmail":      raw[service.FieldLegacyEmail] != nil || raw[service.FieldContactEmail] != nil,
			"hasAgreements": raw[service.FieldLegacyAcceptTerms] != nil || (raw[service.FieldConsentProcessing] != nil && raw[service.FieldConsentContact] != nil),
		},
		RiskLevel: domain.RiskLow,
		Success:   true,
	})

	if sanitize.Honeypot(raw) {
		log.Warn("bot detected via honeypot field")
		honeypotTripped(ctx, h.Audit, r)
		httpx.WriteJSON(w, http.StatusOK, surveysdk.SubscribeResponse{
			Success:      true,
			Message:      msgSubscribeSuccess,
			SubmissionID: botSubmissionID,
		})
		return
	}

	in, err := service.ParseSubmission(raw, true, h.Now())
	if err != nil {
		msg, reason := validationFailure(err)
		a.validationFailed(reason)
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	suspiciousInput(ctx, h.Audit, r, in.Detections)

	in.IPAddress = httpx.ClientIP(r)
	in.UserAgent = r.UserAgent()

	res, err := h.SubmissionService.Subscribe(ctx, in)
	if err != nil {
		code, msg := http.StatusInternalServerError, msgSubscribeFailed
		if errors.Is(err, service.ErrDuplicateEmail) {
			code, msg = http.StatusConflict, msgDuplicateEmail
		} else {
			log.Error("failed to store subscription", "err", err)
		}
		a.record(domain.AuditLog{
			Action:       domain.ActionSubscriptionError,
			Details:      map[string]any{"error": err.Error()},
			RiskLevel:    domain.RiskHigh,
			Success:      false,
			ErrorMessage: err.Error(),
			ResponseCode: intPtr(code),
		})
		httpx.WriteError(w, code, msg)
		return
	}

	resourceID, subType, msg := res.SubmissionID, "with_form", msgSubscribeSuccess
	if resourceID == "" {
		resourceID, subType, msg = res.SubscriptionID, "newsletter_only", msgNewsletterOnly
	}
	a.record(domain.AuditLog{
		Action:           domain.ActionSubscriptionSuccess,
		ResourceID:       resourceID,
		FormSubmissionID: res.SubmissionID,
		Details: map[string]any{
			"email":            in.Email,
			"hasFormData":      res.SubmissionID != "",
			"subscriptionType": subType,
		},
		RiskLevel:    domain.RiskLow,
		Success:      true,
		ResponseCode: intPtr(http.StatusCreated),
	})

	httpx.WriteJSON(w, http.StatusCreated, surveysdk.SubscribeResponse{
		Success:      true,
		Message:      msg,
		SubmissionID: resourceID,
	})
}
