package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
)

// SecurityHeaders returned on every response, success or error.
var SecurityHeaders = map[string]string{
	"Content-Security-Policy":   "default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' data:; connect-src 'self' https:; frame-ancestors 'none';",
	"X-Frame-Options":           "DENY",
	"X-Content-Type-Options":    "nosniff",
	"X-XSS-Protection":          "1; mode=block",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=(), payment=()",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains; preload",
}

// SecureHeaders sets SecurityHeaders before the handler runs so that error
// replies written further down the chain carry them too.
func SecureHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range SecurityHeaders {
				h.Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardingHeaders are proxy headers whose values are checked for spoofing.
var forwardingHeaders = []string{"X-Real-IP", "X-Forwarded-Host", "X-Cluster-Client-IP"}

var spoofMarkers = []string{"..", "localhost", "127.0.0.1"}

// RejectSuspiciousHeaders answers 403 when a forwarding header points at
// loopback or contains path traversal. It is a no-op when disabled, which
// the application does in development.
func RejectSuspiciousHeaders(enabled bool) Middleware {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range forwardingHeaders {
				v := strings.ToLower(r.Header.Get(name))
				if v == "" {
					continue
				}
				for _, m := range spoofMarkers {
					if strings.Contains(v, m) {
						slogx.FromContext(r.Context()).Warn("suspicious forwarding header",
							slog.String("header", name), slog.String("value", v))
						WriteError(w, http.StatusForbidden, MsgForbidden)
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON rejects API writes that do not declare a JSON body.
func RequireJSON() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				if strings.HasPrefix(r.URL.Path, "/api/") &&
					!strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
					WriteError(w, http.StatusBadRequest, MsgContentType)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminBlockedAgents are user agent fragments refused on admin routes.
var AdminBlockedAgents = []string{"curl", "wget", "python", "scanner", "crawler"}

// BotAgents are user agent fragments that mark a request as automated.
var BotAgents = []string{"curl", "wget", "python", "bot", "spider", "crawler"}

// MatchAgent reports whether ua contains any pattern, ignoring case.
func MatchAgent(ua string, patterns []string) bool {
	ua = strings.ToLower(ua)
	for _, p := range patterns {
		if strings.Contains(ua, p) {
			return true
		}
	}
	return false
}

// BlockUserAgents answers 403 for user agents matching patterns.
func BlockUserAgents(patterns []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if MatchAgent(r.UserAgent(), patterns) {
				slogx.FromContext(r.Context()).Warn("blocked user agent", slog.String("user_agent", r.UserAgent()))
				WriteError(w, http.StatusForbidden, MsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OriginAllowed reports whether the request's Origin or Referer contains one
// of allowed. An empty allow-list or a request without Origin passes.
func OriginAllowed(r *http.Request, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	referer := r.Header.Get("Referer")
	for _, a := range allowed {
		if a == "" {
			continue
		}
		if strings.Contains(origin, a) || strings.Contains(referer, a) {
			return true
		}
	}
	return false
}
