package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/service"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
)

// User facing survey messages.
const (
	msgEmailRequired    = "Email jest wymagany"
	msgConsentRequired  = "Wymagane są obie zgody"
	msgInvalidEmail     = "Nieprawidłowy format adresu email"
	msgInvalidForm      = "Nieprawidłowe dane formularza"
	msgDuplicateEmail   = "Ten adres email jest już zarejestrowany."
	msgSubscribeFailed  = "Wystąpił błąd podczas przetwarzania formularza. Spróbuj ponownie."
	msgSubmitSuccess    = "Formularz został pomyślnie przesłany i zapisany w bazie danych."
	msgSubscribeSuccess = "Formularz zapisany pomyślnie"
	msgNewsletterOnly   = "Zapisano do newslettera pomyślnie"
)

// validationFailure maps a ParseSubmission error to its reply and audit
// reason.
func validationFailure(err error) (msg, reason string) {
	switch {
	case errors.Is(err, service.ErrEmailRequired):
		return msgEmailRequired, "Missing or invalid email"
	case errors.Is(err, service.ErrConsentRequired):
		return msgConsentRequired, "Missing required agreements"
	case errors.Is(err, service.ErrInvalidEmail):
		return msgInvalidEmail, "Invalid email format"
	default:
		return msgInvalidForm, "Schema validation failed"
	}
}

// decodeForm reads the raw questionnaire body. It writes the error reply
// itself and reports false on failure.
func decodeForm(w http.ResponseWriter, r *http.Request) (map[string]any, string, bool) {
	var raw map[string]any
	err := httpx.DecodeJSON(w, r, &raw, httpx.DefaultMaxBodyBytes)
	switch {
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, httpx.MsgPayloadTooLarge)
		return nil, "Request body too large", false
	case err != nil || raw == nil:
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidForm)
		return nil, "Invalid JSON body", false
	}
	return raw, "", true
}

// surveyAudit fills the request metadata shared by survey entries.
type surveyAudit struct {
	log      *audit.Logger
	r        *http.Request
	resource string
	now      func() time.Time
	start    time.Time
}

func (a surveyAudit) record(e domain.AuditLog) {
	if a.log == nil {
		return
	}
	m := requestMeta(a.r)
	e.SessionID = m.SessionID
	e.Resource = a.resource
	e.IPAddress = m.IPAddress
	e.UserAgent = m.UserAgent
	if e.ResponseCode != nil {
		e.ProcessingTimeMs = elapsedMs(a.now, a.start)
	}
	a.log.Log(a.r.Context(), e)
}

func (a surveyAudit) validationFailed(reason string) {
	a.record(domain.AuditLog{
		Action:    domain.ActionValidationFailed,
		Details:   map[string]any{"reason": reason},
		RiskLevel: domain.RiskMedium,
		Success:   false,
	})
}
