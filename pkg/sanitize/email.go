package sanitize

import (
	"errors"
	"regexp"
	"strings"
)

const (
	MinEmailLength = 5
	MaxEmailLength = 254
)

var ErrInvalidEmail = errors.New("sanitize: invalid email")

var emailRe = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// Email trims and lowercases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateEmail checks a normalized address. It is stricter than RFC 5322
// and refuses quoting, consecutive dots and markup characters outright.
func ValidateEmail(email string) error {
	if len(email) < MinEmailLength || len(email) > MaxEmailLength {
		return ErrInvalidEmail
	}
	if strings.ContainsAny(email, "<>'\";`\\/") || strings.Contains(email, "..") {
		return ErrInvalidEmail
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return ErrInvalidEmail
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") ||
		strings.HasPrefix(domain, ".") || strings.HasPrefix(domain, "-") {
		return ErrInvalidEmail
	}

	if !emailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
