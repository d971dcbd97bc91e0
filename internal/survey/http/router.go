package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	"github.com/aussiebroadwan/alimatrix/internal/survey/service"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
	"github.com/aussiebroadwan/alimatrix/pkg/csrf"
	"github.com/aussiebroadwan/alimatrix/pkg/httpx"
	"github.com/aussiebroadwan/alimatrix/pkg/jwtx"
	"github.com/aussiebroadwan/alimatrix/pkg/ratelimit"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"

	_ "github.com/aussiebroadwan/alimatrix/api/survey" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	now          func() time.Time

	store   store.Store
	limiter *ratelimit.Limiter

	Tokens            *csrf.Registry
	Audit             *audit.Logger
	SubmissionService *service.SubmissionService
	AdminAuthService  *service.AdminAuthService

	// AllowedOrigins is the origin allow-list for survey endpoints. Empty
	// allows every origin.
	AllowedOrigins []string

	// CachePing checks the shared token and counter store. Nil when they are
	// kept in memory.
	CachePing func(ctx context.Context) error
}

// NewRouter builds the router and its global middleware chain. With
// strictHeaders set, requests carrying spoofed forwarding headers are
// refused.
func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	limiter *ratelimit.Limiter,
	strictHeaders bool,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		now:          time.Now,
		store:        st,
		limiter:      limiter,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(r.recordPanic),
		httpx.SecureHeaders(),
		httpx.RejectSuspiciousHeaders(strictHeaders),
		httpx.RequireJSON(),
		httpx.GlobalRateLimit(r.limiter, httpx.APILimit, httpx.PageLimit, r.observeRateLimit),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerCSRF()
	r.registerSurvey()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			AliMatrix Survey API
//	@version		1.0.0
//	@description	Survey intake for the AliMatrix alimony study. Every write is protected by
//	@description	per-IP rate limits, an origin allow-list and single use CSRF tokens, and is
//	@description	recorded in an append-only audit log.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/alimatrix
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Admin session token. Format: "Bearer {token}".
//
//	@securityDefinitions.apikey	CSRFToken
//	@in							header
//	@name						X-CSRF-Token
//	@description				Single use token from GET /api/csrf-token.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// securityCheck builds the per-endpoint checks shared by the survey routes.
func (r *Router) securityCheck(limit httpx.RateLimitConfig, requireCSRF bool) httpx.Middleware {
	return httpx.SecurityCheck{
		Limiter:           r.limiter,
		RateLimit:         limit,
		AllowedOrigins:    r.AllowedOrigins,
		RequireCSRF:       requireCSRF,
		Tokens:            r.Tokens,
		Events:            &securityEvents{audit: r.Audit},
		RateLimitObserver: r.observeRateLimit,
	}.Middleware()
}

func (r *Router) registerCSRF() {
	h := &CSRFHandler{Tokens: r.Tokens, Audit: r.Audit, Now: r.now}

	// GET /csrf-token - issue and register in one step
	r.Mux.Handle("GET /api/csrf-token",
		httpx.Chain(http.HandlerFunc(h.HandleIssue),
			r.securityCheck(httpx.RegisterLimit, false),
		),
	)

	// POST /register-csrf - register a client generated token
	r.Mux.Handle("POST /api/register-csrf",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			r.securityCheck(httpx.RegisterLimit, false),
		),
	)
}

func (r *Router) registerSurvey() {
	submit := &SubmitHandler{SubmissionService: r.SubmissionService, Audit: r.Audit, Now: r.now}
	subscribe := &SubscribeHandler{SubmissionService: r.SubmissionService, Audit: r.Audit, Now: r.now}

	// POST /secure-submit - strictest limit plus a CSRF token
	r.Mux.Handle("POST /api/secure-submit",
		httpx.Chain(submit,
			r.securityCheck(httpx.SubmitLimit, true),
		),
	)

	// POST /subscribe-v2 - origin checked, no token for the simple signup form
	r.Mux.Handle("POST /api/subscribe-v2",
		httpx.Chain(subscribe,
			r.securityCheck(httpx.SubscribeLimit, false),
		),
	)
}

func (r *Router) registerAdmin() {
	login := &AdminLoginHandler{AdminAuthService: r.AdminAuthService, Audit: r.Audit}
	auditH := &AdminAuditHandler{Audit: r.Audit}
	subs := &AdminSubmissionsHandler{SubmissionService: r.SubmissionService, Audit: r.Audit}

	blockAgents := httpx.BlockUserAgents(httpx.AdminBlockedAgents)

	// POST /admin/login - limited by IP, every attempt is audited
	r.Mux.Handle("POST /api/admin/login",
		httpx.Chain(login,
			blockAgents,
			httpx.RateLimitByIP(r.limiter, httpx.AdminLimit, r.observeRateLimit),
		),
	)

	secured := func(h http.HandlerFunc, scope string) http.Handler {
		return httpx.Chain(h,
			blockAgents,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(scope),
			httpx.RateLimitByUser(r.limiter, httpx.AdminLimit, r.observeRateLimit),
		)
	}

	r.Mux.Handle("GET /api/admin/audit/{resourceID}", secured(auditH.HandleTrail, service.ScopeAuditRead))
	r.Mux.Handle("GET /api/admin/incidents", secured(auditH.HandleIncidents, service.ScopeAuditRead))
	r.Mux.Handle("GET /api/admin/stats", secured(auditH.HandleStats, service.ScopeAuditRead))
	r.Mux.Handle("GET /api/admin/submissions/{id}", secured(subs.HandleGet, service.ScopeSubmissionsRead))
	r.Mux.Handle("DELETE /api/admin/submissions/{id}", secured(subs.HandleDelete, service.ScopeSubmissionsDelete))
}

func (r *Router) registerSystem() {
	// Health checks only pass through the global page limit
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.CachePing, r.Audit))
}
