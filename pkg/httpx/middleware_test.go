package httpx_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mw("outer"), nil, mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestRecover(t *testing.T) {
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("db exploded: secret dsn")
	})

	t.Run("panic becomes a generic 500", func(t *testing.T) {
		var seen any
		h := httpx.Chain(boom, httpx.Recover(func(_ *http.Request, v any) { seen = v }), httpx.SecureHeaders())

		rec := httptest.NewRecorder()
		require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/boom", nil)) })

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), httpx.MsgUnexpected)
		require.NotContains(t, rec.Body.String(), "secret dsn")
		require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		require.Equal(t, "db exploded: secret dsn", seen)
	})

	t.Run("abort handler is passed through", func(t *testing.T) {
		abort := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) })
		h := httpx.Recover(nil)(abort)
		require.PanicsWithValue(t, http.ErrAbortHandler, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})

	t.Run("no panic", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.Recover(nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.pl"}`))
		var p payload
		require.NoError(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &p, 0))
		require.Equal(t, "a@b.pl", p.Email)
	})

	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		var p payload
		require.ErrorIs(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &p, 0), httpx.ErrInvalidJSON)
	})

	t.Run("trailing data", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{} {}`))
		var p payload
		require.ErrorIs(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &p, 0), httpx.ErrInvalidJSON)
	})

	t.Run("too large", func(t *testing.T) {
		body := `{"email":"` + string(bytes.Repeat([]byte("x"), 200)) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var p payload
		require.ErrorIs(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &p, 64), httpx.ErrBodyTooLarge)
	})
}

func TestAuthnAndScopes(t *testing.T) {
	signer, err := jwtx.NewHS256(bytes.Repeat([]byte("k"), 32), "alimatrix", []string{"alimatrix-admin"})
	require.NoError(t, err)

	claims := jwtx.NewSessionClaims("admin", "alimatrix", []string{"alimatrix-admin"},
		[]string{"audit:read"}, []string{"pwd", "otp"}, time.Minute, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	var subject string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = httpx.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	do := func(h http.Handler, authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing token", func(t *testing.T) {
		rec := do(httpx.AuthnMiddleware(signer)(inner), "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
		require.Contains(t, rec.Body.String(), httpx.MsgUnauthorized)
	})

	t.Run("bad token", func(t *testing.T) {
		rec := do(httpx.AuthnMiddleware(signer)(inner), "Bearer not.a.jwt")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("scope granted", func(t *testing.T) {
		h := httpx.Chain(inner, httpx.AuthnMiddleware(signer), httpx.RequireAnyScope("audit:read"))
		rec := do(h, "Bearer "+token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "admin", subject)
	})

	t.Run("scope missing", func(t *testing.T) {
		h := httpx.Chain(inner, httpx.AuthnMiddleware(signer), httpx.RequireAllScopes("audit:read", "submissions:delete"))
		rec := do(h, "Bearer "+token)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})
}
