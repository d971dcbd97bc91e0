package sanitize_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/alimatrix/pkg/sanitize"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		hits []string
	}{
		{"plain polish text", "  Dwoje dzieci, alimenty 1500 zł  ", "Dwoje dzieci, alimenty 1500 zł", nil},
		{"html escaped", "a <b> c", "a &lt;b&gt; c", nil},
		{"script removed", "<script>alert(1)</script>", "[FILTERED]", []string{"XSS"}},
		{"sql keyword", "1 UNION SELECT x", "1 [FILTERED] [FILTERED] x", []string{"SQL_INJECTION"}},
		{"path traversal", "../../etc/passwd", "[FILTERED][FILTERED]etc/passwd", []string{"PATH_TRAVERSAL"}},
		{"command", "run wget now", "run [FILTERED] now", []string{"COMMAND_INJECTION"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hits := sanitize.String(tt.in)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.hits, hits)
		})
	}
}

func TestForm(t *testing.T) {
	in := map[string]any{
		"sciezkaWybor": "established",
		"constructor":  "x",
		"dzieci": []any{
			map[string]any{"wiek": float64(7), "__proto__": map[string]any{"admin": true}},
			"<i>",
		},
		"nested": map[string]any{"eval": "1", "note": "javascript:alert()"},
		"zgoda":  true,
	}

	res, err := sanitize.Form(in)
	require.NoError(t, err)

	require.NotContains(t, res.Data, "constructor")
	require.Equal(t, "established", res.Data["sciezkaWybor"])
	require.Equal(t, true, res.Data["zgoda"])

	dzieci := res.Data["dzieci"].([]any)
	require.Equal(t, map[string]any{"wiek": float64(7)}, dzieci[0])
	require.Equal(t, "&lt;i&gt;", dzieci[1])

	nested := res.Data["nested"].(map[string]any)
	require.NotContains(t, nested, "eval")
	require.Contains(t, res.Detections, "nested.note: XSS")

	// input is not mutated
	require.Contains(t, in, "constructor")
}

func TestFormLimits(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		_, err := sanitize.Form(nil)
		require.ErrorIs(t, err, sanitize.ErrNotObject)
	})

	t.Run("too many fields", func(t *testing.T) {
		data := make(map[string]any, sanitize.MaxFields+1)
		for i := range sanitize.MaxFields + 1 {
			data[strings.Repeat("k", i+1)] = i
		}
		_, err := sanitize.Form(data)
		require.ErrorIs(t, err, sanitize.ErrTooManyFields)
	})

	t.Run("field too long", func(t *testing.T) {
		_, err := sanitize.Form(map[string]any{"opis": strings.Repeat("ą", sanitize.MaxStringLength+1)})
		require.ErrorIs(t, err, sanitize.ErrFieldTooLong)
	})

	t.Run("at limit", func(t *testing.T) {
		_, err := sanitize.Form(map[string]any{"opis": strings.Repeat("a", sanitize.MaxStringLength)})
		require.NoError(t, err)
	})
}

func TestHoneypot(t *testing.T) {
	require.False(t, sanitize.Honeypot(map[string]any{}))
	require.False(t, sanitize.Honeypot(map[string]any{"notHuman": ""}))
	require.False(t, sanitize.Honeypot(map[string]any{"notHuman": false}))
	require.True(t, sanitize.Honeypot(map[string]any{"notHuman": "spam"}))
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"jan.kowalski@example.pl", "a+b@sub.domain.com", "x_y@o2.pl"}
	for _, e := range valid {
		require.NoError(t, sanitize.ValidateEmail(sanitize.Email(e)), e)
	}

	invalid := []string{
		"", "a@b", "no-at-sign.pl", "a..b@example.pl", ".a@example.pl", "a.@example.pl",
		"a@.example.pl", "a<b@example.pl", "a'b@example.pl", "a;b@example.pl",
		"a@example", strings.Repeat("a", 250) + "@x.pl",
	}
	for _, e := range invalid {
		require.ErrorIs(t, sanitize.ValidateEmail(sanitize.Email(e)), sanitize.ErrInvalidEmail, e)
	}

	require.Equal(t, "jan@example.pl", sanitize.Email("  JAN@Example.PL "))
}
