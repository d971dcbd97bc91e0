package audit

import "strings"

const (
	// Redacted replaces the value of any sensitive key.
	Redacted = "[REDACTED]"

	// MaxValueLength is the longest string kept verbatim, in runes.
	MaxValueLength = 1000
	truncatedMark  = "...[TRUNCATED]"

	// MaxUserAgentLength caps stored user agents.
	MaxUserAgentLength = 500
)

// SensitiveKeys are matched as substrings of the lowercased key. The short
// entries over-match on purpose: "success" and "accessCount" hit "cc",
// "shipping" hits "pin" and "author" hits "auth".
var SensitiveKeys = []string{
	"password", "passwd", "secret", "token", "key", "apikey", "api_key",
	"authorization", "auth", "csrf", "pesel", "ssn", "credit_card",
	"creditcard", "cc", "cvv", "pin", "nip",
}

func sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range SensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Redact returns a deep copy of m with sensitive values replaced and long
// strings truncated, at any nesting depth. The input is never modified.
func Redact(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sensitive(k) {
			out[k] = Redacted
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case string:
		return Truncate(t, MaxValueLength)
	case map[string]any:
		return Redact(t)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return Redact(m)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Redact(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Truncate(e, MaxValueLength)
		}
		return out
	default:
		return v
	}
}

// Truncate cuts s to max runes and appends a marker when it was longer.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + truncatedMark
}

func capRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
