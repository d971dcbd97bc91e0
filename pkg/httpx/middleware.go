package httpx

import (
	"net/http"
	"runtime/debug"

	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware listed runs first.
func Chain(h http.Handler, m ...Middleware) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i] != nil {
			h = m[i](h)
		}
	}
	return h
}

// Recover answers a panicking handler with 500 and MsgUnexpected instead of
// dropping the connection. Headers already set on w, such as the security
// headers, are kept. onPanic runs before the response is written.
// http.ErrAbortHandler is passed through.
func Recover(onPanic func(r *http.Request, v any)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				slogx.FromContext(r.Context()).Error("panic recovered",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				if onPanic != nil {
					onPanic(r, v)
				}
				WriteError(w, http.StatusInternalServerError, MsgUnexpected)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
