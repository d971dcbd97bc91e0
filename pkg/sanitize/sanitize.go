// Package sanitize cleans untrusted survey input before it is stored.
//
// Strings are trimmed, matched against known injection patterns (matches
// become "[FILTERED]") and then HTML-escaped. Keys that name JavaScript
// builtins are dropped at every nesting level.
package sanitize

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

const (
	// MaxFields caps the number of top-level form fields.
	MaxFields = 100

	// MaxStringLength caps a single top-level string value, in runes.
	MaxStringLength = 10000

	// Filtered replaces any matched injection pattern.
	Filtered = "[FILTERED]"
)

var (
	ErrNotObject     = errors.New("sanitize: form data must be an object")
	ErrTooManyFields = errors.New("sanitize: too many fields")
	ErrFieldTooLong  = errors.New("sanitize: field too long")
)

var dangerousKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
	"toString":    {},
	"valueOf":     {},
	"eval":        {},
	"setTimeout":  {},
	"setInterval": {},
	"execScript":  {},
	"Function":    {},
	"document":    {},
	"window":      {},
}

// Pattern is one named family of injection signatures.
type Pattern struct {
	Name string
	Res  []*regexp.Regexp
}

// SecurityPatterns are applied in order to every string value.
var SecurityPatterns = []Pattern{
	{Name: "SQL_INJECTION", Res: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter|exec|execute)\b`),
		regexp.MustCompile(`(?i)(;|--|/\*|\*/|xp_|@@|char\(|nchar\()`),
		regexp.MustCompile(`(?i)\b(or|and)\b.*[=<>].*['"]`),
	}},
	{Name: "XSS", Res: []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script\b.*?</script\s*>`),
		regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`),
		regexp.MustCompile(`(?i)javascript:|vbscript:|onload=|onerror=|onclick=`),
	}},
	{Name: "PATH_TRAVERSAL", Res: []*regexp.Regexp{
		regexp.MustCompile(`\.\.[/\\]`),
		regexp.MustCompile(`(?i)%2e%2e[/\\]`),
	}},
	{Name: "COMMAND_INJECTION", Res: []*regexp.Regexp{
		regexp.MustCompile("[;&|`$()]"),
		regexp.MustCompile(`(?i)\b(wget|curl|nc|netcat|bash|sh|cmd|powershell)\b`),
	}},
}

// String filters injection patterns out of s and escapes HTML. It returns
// the cleaned value and the names of the pattern families that matched.
func String(s string) (string, []string) {
	s = strings.TrimSpace(s)

	var hits []string
	for _, p := range SecurityPatterns {
		matched := false
		for _, re := range p.Res {
			if re.MatchString(s) {
				s = re.ReplaceAllLiteralString(s, Filtered)
				matched = true
			}
		}
		if matched {
			hits = append(hits, p.Name)
		}
	}

	return html.EscapeString(s), hits
}

// Result is the outcome of Form.
type Result struct {
	Data map[string]any

	// Detections lists "<field>: <pattern>" for every filtered value.
	Detections []string
}

// Form validates the field budget of data and returns a sanitized deep copy.
// Values that are not strings, maps or slices are kept as they are.
func Form(data map[string]any) (Result, error) {
	if data == nil {
		return Result{}, ErrNotObject
	}
	if len(data) > MaxFields {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrTooManyFields, len(data), MaxFields)
	}
	for k, v := range data {
		if s, ok := v.(string); ok && len([]rune(s)) > MaxStringLength {
			return Result{}, fmt.Errorf("%w: %s", ErrFieldTooLong, k)
		}
	}

	var res Result
	res.Data = sanitizeMap(data, "", &res.Detections)
	return res, nil
}

func sanitizeMap(m map[string]any, path string, hits *[]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, bad := dangerousKeys[k]; bad {
			continue
		}
		out[html.EscapeString(k)] = sanitizeValue(v, join(path, k), hits)
	}
	return out
}

func sanitizeValue(v any, path string, hits *[]string) any {
	switch t := v.(type) {
	case string:
		clean, found := String(t)
		for _, name := range found {
			*hits = append(*hits, path+": "+name)
		}
		return clean
	case map[string]any:
		return sanitizeMap(t, path, hits)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e, fmt.Sprintf("%s[%d]", path, i), hits)
		}
		return out
	default:
		return v
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Honeypot reports whether the hidden notHuman field was filled in.
func Honeypot(data map[string]any) bool {
	s, ok := data["notHuman"].(string)
	return ok && strings.TrimSpace(s) != ""
}
