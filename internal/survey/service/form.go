package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/alimatrix/pkg/sanitize"
)

var (
	ErrEmailRequired   = errors.New("email is required")
	ErrConsentRequired = errors.New("both consents are required")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidForm     = errors.New("invalid form data")
	ErrDuplicateEmail  = errors.New("email already registered")
)

// Form field names used by the questionnaire front end.
const (
	FieldContactEmail      = "contactEmail"
	FieldLegacyEmail       = "email"
	FieldConsentProcessing = "zgodaPrzetwarzanie"
	FieldConsentContact    = "zgodaKontakt"
	FieldLegacyAcceptTerms = "acceptedTerms"
	FieldHoneypot          = "notHuman"
	FieldCSRFToken         = "csrfToken"
	FieldSubmissionDate    = "submissionDate"
)

// SubmissionInput is a parsed and sanitized questionnaire.
type SubmissionInput struct {
	Email           string
	AcceptedTerms   bool
	AcceptedContact bool

	// Data is the sanitized remainder of the form.
	Data map[string]any

	// Detections lists fields where injection patterns were filtered.
	Detections []string

	IPAddress string
	UserAgent string
}

// ParseSubmission turns a decoded JSON body into a SubmissionInput. With
// legacy set it first maps "email" to contactEmail and a single
// acceptedTerms flag to both consents.
//
// The honeypot is not checked here; callers test sanitize.Honeypot on the
// raw body first so bots get a fake success before any validation.
func ParseSubmission(raw map[string]any, legacy bool, now time.Time) (SubmissionInput, error) {
	if raw == nil {
		return SubmissionInput{}, ErrInvalidForm
	}
	body := make(map[string]any, len(raw))
	for k, v := range raw {
		body[k] = v
	}

	if legacy {
		if e, ok := body[FieldLegacyEmail]; ok {
			if _, has := body[FieldContactEmail]; !has {
				body[FieldContactEmail] = e
			}
			delete(body, FieldLegacyEmail)
		}
		if t, ok := body[FieldLegacyAcceptTerms]; ok {
			if _, has := body[FieldConsentProcessing]; !has {
				body[FieldConsentProcessing] = t
				body[FieldConsentContact] = t
			}
			delete(body, FieldLegacyAcceptTerms)
		}
	}

	rawEmail, ok := body[FieldContactEmail].(string)
	if !ok || strings.TrimSpace(rawEmail) == "" {
		return SubmissionInput{}, ErrEmailRequired
	}

	in := SubmissionInput{
		AcceptedTerms:   truthy(body[FieldConsentProcessing]),
		AcceptedContact: truthy(body[FieldConsentContact]),
	}
	if !in.AcceptedTerms || !in.AcceptedContact {
		return SubmissionInput{}, ErrConsentRequired
	}

	in.Email = sanitize.Email(rawEmail)
	if err := sanitize.ValidateEmail(in.Email); err != nil {
		return SubmissionInput{}, ErrInvalidEmail
	}

	for _, k := range []string{
		FieldContactEmail, FieldConsentProcessing, FieldConsentContact,
		FieldHoneypot, FieldCSRFToken,
	} {
		delete(body, k)
	}

	res, err := sanitize.Form(body)
	if err != nil {
		return SubmissionInput{}, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	in.Data = res.Data
	in.Detections = res.Detections
	if len(in.Data) > 0 {
		in.Data[FieldSubmissionDate] = now.UTC().Format(time.RFC3339)
	}
	return in, nil
}

// truthy accepts true, "true" (any case) and "1".
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true") || t == "1"
	case float64:
		return t != 0
	}
	return false
}
