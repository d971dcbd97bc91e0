package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	surveyhttp "github.com/aussiebroadwan/alimatrix/internal/survey/http"
	"github.com/aussiebroadwan/alimatrix/internal/survey/service"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store/drivers/sqlite"
	"github.com/aussiebroadwan/alimatrix/pkg/cryptox"
	"github.com/aussiebroadwan/alimatrix/pkg/csrf"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/jwtx"
	"github.com/aussiebroadwan/alimatrix/pkg/ratelimit"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

const (
	adminUser     = "admin"
	adminPassword = "Admin123!"
)

type testEnv struct {
	router *surveyhttp.Router
	store  *sqlite.Store
	tokens *csrf.Registry
	audit  *audit.Logger
}

func newTestEnv(t *testing.T, allowedOrigins ...string) *testEnv {
	t.Helper()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := csrf.NewRegistry(csrf.Config{Secret: []byte("test-secret")}, nil, csrf.WithLogger(quiet))
	require.NoError(t, err)

	limiter := ratelimit.New(nil, ratelimit.WithLogger(quiet))
	auditLog := audit.New(st, audit.WithLogger(quiet), audit.WithFallback(quiet))

	hasher := cryptox.PasswordHasher{Pepper: "test-pepper"}
	hash, err := hasher.Hash(adminPassword)
	require.NoError(t, err)
	signer, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), "alimatrix", []string{"alimatrix-admin"})
	require.NoError(t, err)

	r := surveyhttp.NewRouter(signer, "test", st, limiter, true, quiet)
	r.Tokens = tokens
	r.Audit = auditLog
	r.AllowedOrigins = allowedOrigins
	r.SubmissionService = &service.SubmissionService{Store: st}
	r.AdminAuthService = &service.AdminAuthService{
		Username:     adminUser,
		PasswordHash: hash,
		Hasher:       hasher,
		Signer:       signer,
		Issuer:       "alimatrix",
		Audience:     []string{"alimatrix-admin"},
		TTL:          10 * time.Minute,
	}
	r.ApplyRoutes()

	return &testEnv{router: r, store: st, tokens: tokens, audit: auditLog}
}

type request struct {
	method  string
	path    string
	body    any
	ip      string
	headers map[string]string
}

func (e *testEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(buf)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.ip != "" {
		// Arrive through a reverse proxy on the private network.
		r.RemoteAddr = "10.0.0.1:4321"
		r.Header.Set("X-Forwarded-For", req.ip)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) csrfToken(t *testing.T, ip, fingerprint string) string {
	t.Helper()
	headers := map[string]string{}
	if fingerprint != "" {
		headers[httpx.HeaderClientFingerprint] = fingerprint
	}
	w := e.do(t, request{method: http.MethodGet, path: "/api/csrf-token", ip: ip, headers: headers})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[surveysdk.CSRFTokenResponse](t, w).Token
}

func (e *testEnv) adminToken(t *testing.T, ip string) string {
	t.Helper()
	w := e.do(t, request{method: http.MethodPost, path: "/api/admin/login", ip: ip,
		body: surveysdk.AdminLoginRequest{Username: adminUser, Password: adminPassword}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[surveysdk.AdminLoginResponse](t, w).AccessToken
}

func validForm(email string) map[string]any {
	return map[string]any{
		"contactEmail":       email,
		"zgodaPrzetwarzanie": true,
		"zgodaKontakt":       true,
		"sciezkaWybor":       "sad",
		"liczbaDzieci":       2,
	}
}

func incidentsOf(t *testing.T, e *testEnv, ip, kind string) []domain.SecurityIncident {
	t.Helper()
	all, err := e.audit.IncidentsByIP(context.Background(), ip, 1)
	require.NoError(t, err)
	var out []domain.SecurityIncident
	for _, inc := range all {
		if inc.Type == kind {
			out = append(out, inc)
		}
	}
	return out
}

func TestGlobalMiddleware(t *testing.T) {
	e := newTestEnv(t)

	t.Run("security headers and request id", func(t *testing.T) {
		w := e.do(t, request{method: http.MethodGet, path: "/livez", ip: "198.51.100.1"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		require.NotEmpty(t, w.Header().Get("X-Request-ID"))
		require.Equal(t, "ok", decode[surveysdk.HealthResponse](t, w).Status)
	})

	t.Run("spoofed forwarding header", func(t *testing.T) {
		w := e.do(t, request{method: http.MethodGet, path: "/livez", ip: "198.51.100.2",
			headers: map[string]string{"X-Real-IP": "127.0.0.1"}})
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("api write without json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/subscribe-v2", bytes.NewBufferString("email=a"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, r)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, httpx.MsgContentType, decode[surveysdk.ErrorResponse](t, w).Error)
	})

	t.Run("handler panic", func(t *testing.T) {
		e.router.Mux.HandleFunc("GET /api/boom", func(http.ResponseWriter, *http.Request) {
			panic("db exploded: secret dsn")
		})

		var w *httptest.ResponseRecorder
		require.NotPanics(t, func() {
			w = e.do(t, request{method: http.MethodGet, path: "/api/boom", ip: "198.51.100.4"})
		})
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, httpx.MsgUnexpected, decode[surveysdk.ErrorResponse](t, w).Error)
		require.NotContains(t, w.Body.String(), "secret dsn")
		require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

		reqID := w.Header().Get("X-Request-ID")
		require.NotEmpty(t, reqID)
		trail, err := e.audit.AuditTrail(context.Background(), reqID)
		require.NoError(t, err)
		require.Len(t, trail, 1)
		require.Equal(t, domain.ActionUnexpectedError, trail[0].Action)
		require.Equal(t, domain.RiskHigh, trail[0].RiskLevel)
		require.False(t, trail[0].Success)
		require.Equal(t, "198.51.100.4", trail[0].IPAddress)
		require.NotNil(t, trail[0].ResponseCode)
		require.Equal(t, http.StatusInternalServerError, *trail[0].ResponseCode)
	})

	t.Run("readyz", func(t *testing.T) {
		w := e.do(t, request{method: http.MethodGet, path: "/readyz", ip: "198.51.100.3"})
		require.Equal(t, http.StatusOK, w.Code)
		health := decode[surveysdk.HealthResponse](t, w)
		require.NotNil(t, health.Checks)
		require.Equal(t, "ok", health.Checks.Database)
		require.Equal(t, "disabled", health.Checks.Cache)
	})
}
