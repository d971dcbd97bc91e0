package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/pkg/csrf"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

const (
	msgInvalidToken        = "Nieprawidłowy token"
	msgTokenRegisterFailed = "Nie udało się zarejestrować tokenu bezpieczeństwa"
)

type CSRFHandler struct {
	Tokens *csrf.Registry
	Audit  *audit.Logger
	Now    func() time.Time
}

// HandleIssue godoc
//
//	@Summary		Issue CSRF Token
//	@Description	Issues and registers a single use anti-forgery token. When the X-Client-Fingerprint
//	@Description	header is present the token is bound to it. expiresAt is the rotation deadline, after
//	@Description	which an unused token may be replaced and a new one must be fetched.
//	@Tags			CSRF
//	@Produce		json
//	@Param			X-Client-Fingerprint	header		string						false	"Client signature to bind the token to"
//	@Success		200						{object}	surveysdk.CSRFTokenResponse	"token, expiresAt"
//	@Failure		403						{object}	surveysdk.ErrorResponse		"error"
//	@Failure		429						{object}	surveysdk.ErrorResponse		"error"
//	@Failure		500						{object}	surveysdk.ErrorResponse		"error"
//	@Router			/api/csrf-token [get].
func (h *CSRFHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	start := h.Now()

	fp := r.Header.Get(httpx.HeaderClientFingerprint)
	token, err := h.Tokens.Issue(fp)
	if err == nil && !h.Tokens.Register(ctx, token, fp) {
		err = errors.New("registry refused token")
	}
	if err != nil {
		log.Error("failed to issue csrf token", "err", err)
		h.logRegistration(r, domain.ActionCSRFRegistrationError, domain.RiskHigh, false, http.StatusInternalServerError, start, err.Error())
		httpx.WriteError(w, http.StatusInternalServerError, msgTokenRegisterFailed)
		return
	}

	h.logRegistration(r, domain.ActionCSRFRegistered, domain.RiskLow, true, http.StatusOK, start, "")
	httpx.WriteJSON(w, http.StatusOK, surveysdk.CSRFTokenResponse{
		Token:     token,
		ExpiresAt: h.Tokens.UsableUntil(start.UTC()),
	})
}

// HandleRegister godoc
//
//	@Summary		Register CSRF Token
//	@Description	Registers a token generated by the client. Malformed tokens are refused.
//	@Tags			CSRF
//	@Accept			json
//	@Produce		json
//	@Param			request	body		surveysdk.RegisterCSRFRequest	true	"token and optional fingerprint"
//	@Success		200		{object}	surveysdk.SuccessResponse		"success"
//	@Failure		400		{object}	surveysdk.ErrorResponse			"error"
//	@Failure		403		{object}	surveysdk.ErrorResponse			"error"
//	@Failure		429		{object}	surveysdk.ErrorResponse			"error"
//	@Router			/api/register-csrf [post].
func (h *CSRFHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := h.Now()

	var req surveysdk.RegisterCSRFRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		h.logRegistration(r, domain.ActionCSRFRegistrationFail, domain.RiskMedium, false, http.StatusBadRequest, start, "Invalid request body")
		httpx.WriteError(w, http.StatusBadRequest, httpx.MsgBadRequest)
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		h.logRegistration(r, domain.ActionCSRFRegistrationFail, domain.RiskMedium, false, http.StatusBadRequest, start, "Invalid or missing token")
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidToken)
		return
	}

	fp := req.Fingerprint
	if fp == "" {
		fp = r.Header.Get(httpx.HeaderClientFingerprint)
	}
	if !h.Tokens.Register(ctx, token, fp) {
		h.logRegistration(r, domain.ActionCSRFRegistrationFail, domain.RiskMedium, false, http.StatusBadRequest, start, "Token registration failed")
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidToken)
		return
	}

	h.logRegistration(r, domain.ActionCSRFRegistered, domain.RiskLow, true, http.StatusOK, start, "")
	httpx.WriteJSON(w, http.StatusOK, surveysdk.SuccessResponse{Success: true})
}

func (h *CSRFHandler) logRegistration(r *http.Request, action string, risk domain.RiskLevel, ok bool, code int, start time.Time, reason string) {
	if h.Audit == nil {
		return
	}
	m := requestMeta(r)
	details := map[string]any{"endpoint": r.URL.Path}
	if reason != "" {
		details["reason"] = reason
	}
	h.Audit.Log(r.Context(), domain.AuditLog{
		SessionID:        m.SessionID,
		Action:           action,
		Resource:         "register-csrf",
		IPAddress:        m.IPAddress,
		UserAgent:        m.UserAgent,
		Details:          details,
		RiskLevel:        risk,
		Success:          ok,
		ResponseCode:     intPtr(code),
		ProcessingTimeMs: elapsedMs(h.Now, start),
	})
}
