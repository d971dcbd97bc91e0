package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
)

const (
	// HeaderCSRFToken carries the anti-forgery token on protected writes.
	HeaderCSRFToken = "X-CSRF-Token"

	// HeaderClientFingerprint optionally carries the coarse client signature
	// the token was bound to.
	HeaderClientFingerprint = "X-Client-Fingerprint"
)

// TokenVerifier is satisfied by *csrf.Registry.
type TokenVerifier interface {
	Verify(ctx context.Context, token, fingerprint string) bool
	Consume(ctx context.Context, token string) bool
}

// Reasons passed to SecurityEvents.CheckFailed.
const (
	ReasonRateLimited  = "rate_limited"
	ReasonBadOrigin    = "unauthorized_origin"
	ReasonMissingToken = "missing_csrf_token"
	ReasonInvalidToken = "invalid_csrf_token"
)

// SecurityEvents receives the outcome of failed checks so they can be
// audited. Implementations must not block.
type SecurityEvents interface {
	CheckFailed(r *http.Request, reason string)
	BotDetected(r *http.Request)
}

// SecurityCheck runs the per-endpoint checks in order: rate limit, origin
// allow-list, CSRF token, and finally bot detection, which is only reported.
// Any failure short-circuits with a 4xx reply.
type SecurityCheck struct {
	Limiter   RateLimiter
	RateLimit RateLimitConfig

	AllowedOrigins []string

	// RequireCSRF enables the token check against Tokens.
	RequireCSRF bool
	Tokens      TokenVerifier

	Events            SecurityEvents
	RateLimitObserver RateLimitObserver
}

func (sc SecurityCheck) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sc.check(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (sc SecurityCheck) check(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Rate limit
	if sc.Limiter != nil && sc.RateLimit.Requests > 0 {
		var observers []RateLimitObserver
		if sc.RateLimitObserver != nil {
			observers = append(observers, sc.RateLimitObserver)
		}
		if !allowRequest(w, r, sc.Limiter, sc.RateLimit, IPKeyExtractor, observers) {
			sc.failed(r, ReasonRateLimited)
			return false
		}
	}

	// 2. Origin
	if !OriginAllowed(r, sc.AllowedOrigins) {
		log.Warn("blocked request from unauthorized origin",
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("ip", ClientIP(r)),
		)
		sc.failed(r, ReasonBadOrigin)
		WriteError(w, http.StatusForbidden, MsgBadOrigin)
		return false
	}

	// 3. CSRF
	if sc.RequireCSRF {
		token := r.Header.Get(HeaderCSRFToken)
		if token == "" {
			sc.failed(r, ReasonMissingToken)
			WriteError(w, http.StatusForbidden, MsgMissingToken)
			return false
		}
		if sc.Tokens == nil {
			log.Error("csrf check enabled without a token verifier")
			WriteError(w, http.StatusInternalServerError, MsgSecurityError)
			return false
		}

		fp := r.Header.Get(HeaderClientFingerprint)
		if !sc.Tokens.Verify(ctx, token, fp) || !sc.Tokens.Consume(ctx, token) {
			sc.failed(r, ReasonInvalidToken)
			WriteError(w, http.StatusForbidden, MsgInvalidToken)
			return false
		}
	}

	// 4. Bots are reported, not blocked.
	if MatchAgent(r.UserAgent(), BotAgents) {
		log.Warn("suspicious bot user agent", slog.String("user_agent", r.UserAgent()))
		if sc.Events != nil {
			sc.Events.BotDetected(r)
		}
	}

	return true
}

func (sc SecurityCheck) failed(r *http.Request, reason string) {
	if sc.Events != nil {
		sc.Events.CheckFailed(r, reason)
	}
}
