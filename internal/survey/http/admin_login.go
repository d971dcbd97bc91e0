package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/service"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

const msgInvalidLogin = "Nieprawidłowe dane logowania"

type AdminLoginHandler struct {
	AdminAuthService *service.AdminAuthService
	Audit            *audit.Logger
}

// ServeHTTP godoc
//
//	@Summary		Admin Login
//	@Description	Authenticates the administrator with a password and, when configured, a TOTP code.
//	@Description	Returns a short lived HS256 session token. Every attempt is audited.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		surveysdk.AdminLoginRequest		true	"username, password, code"
//	@Success		200		{object}	surveysdk.AdminLoginResponse	"access_token, token_type, expires_in, scopes"
//	@Failure		400		{object}	surveysdk.ErrorResponse			"error"
//	@Failure		401		{object}	surveysdk.ErrorResponse			"error"
//	@Failure		403		{object}	surveysdk.ErrorResponse			"error"
//	@Failure		404		{object}	surveysdk.ErrorResponse			"error"
//	@Failure		429		{object}	surveysdk.ErrorResponse			"error"
//	@Router			/api/admin/login [post].
func (h *AdminLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req surveysdk.AdminLoginRequest
	if err := httpx.DecodeJSON(w, r, &req, 0); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.MsgBadRequest)
		return
	}

	sess, err := h.AdminAuthService.Login(ctx, req.Username, req.Password, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdminDisabled):
			httpx.WriteError(w, http.StatusNotFound, httpx.MsgNotFound)
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidTOTPCode):
			h.logAuth(r, domain.ActionLoginFailed, req.Username, err.Error())
			httpx.WriteError(w, http.StatusUnauthorized, msgInvalidLogin)
		default:
			log.Error("admin login failed", "err", err)
			h.logAuth(r, domain.ActionLoginFailed, req.Username, "internal error")
			httpx.WriteError(w, http.StatusInternalServerError, httpx.MsgUnexpected)
		}
		return
	}

	h.logAuth(r, domain.ActionLoginSuccess, req.Username, "")
	httpx.WriteJSON(w, http.StatusOK, surveysdk.AdminLoginResponse{
		AccessToken: sess.AccessToken,
		TokenType:   sess.TokenType,
		ExpiresIn:   sess.ExpiresIn,
		Scopes:      sess.Scopes,
	})
}

func (h *AdminLoginHandler) logAuth(r *http.Request, action, username, reason string) {
	if h.Audit == nil {
		return
	}
	m := requestMeta(r)
	details := map[string]any{"username": username}
	if reason != "" {
		details["reason"] = reason
	} else {
		m.UserID = username
	}
	h.Audit.LogAuthEvent(r.Context(), action, m, details)
}
