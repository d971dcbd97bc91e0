package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/alimatrix/pkg/ratelimit"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
)

// RateLimitConfig is one fixed-window profile.
type RateLimitConfig struct {
	// Name keeps counters of different profiles apart.
	Name string
	// Requests allowed per window.
	Requests int
	// Window length.
	Window time.Duration
}

// Rate limit profiles for the protected surfaces. Each can be overridden via
// RATELIMIT_{NAME}_REQUESTS and RATELIMIT_{NAME}_WINDOW_SEC.
var (
	// APILimit is the global limit for /api/ routes.
	APILimit = RateLimitConfig{Name: "API", Requests: 30, Window: time.Minute}

	// PageLimit is the global limit for everything outside /api/.
	PageLimit = RateLimitConfig{Name: "PAGE", Requests: 60, Window: time.Minute}

	// AdminLimit covers the admin API.
	AdminLimit = RateLimitConfig{Name: "ADMIN", Requests: 20, Window: time.Minute}

	// RegisterLimit covers CSRF token issuance and registration.
	RegisterLimit = RateLimitConfig{Name: "REGISTER", Requests: 10, Window: time.Minute}

	// SubmitLimit covers survey submission, the most sensitive endpoint.
	SubmitLimit = RateLimitConfig{Name: "SUBMIT", Requests: 5, Window: time.Minute}

	// SubscribeLimit covers newsletter subscription.
	SubscribeLimit = RateLimitConfig{Name: "SUBSCRIBE", Requests: 10, Window: time.Minute}
)

func init() {
	APILimit = ParseRateLimitFromEnv(APILimit)
	PageLimit = ParseRateLimitFromEnv(PageLimit)
	AdminLimit = ParseRateLimitFromEnv(AdminLimit)
	RegisterLimit = ParseRateLimitFromEnv(RegisterLimit)
	SubmitLimit = ParseRateLimitFromEnv(SubmitLimit)
	SubscribeLimit = ParseRateLimitFromEnv(SubscribeLimit)
}

// ParseRateLimitFromEnv overrides def with RATELIMIT_{def.Name}_REQUESTS and
// RATELIMIT_{def.Name}_WINDOW_SEC when they hold positive integers.
func ParseRateLimitFromEnv(def RateLimitConfig) RateLimitConfig {
	cfg := def
	prefix := "RATELIMIT_" + strings.ToUpper(def.Name)

	if val := os.Getenv(prefix + "_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Requests = n
		}
	}
	if val := os.Getenv(prefix + "_WINDOW_SEC"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Window = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, user ID, etc.)
type KeyExtractor func(*http.Request) string

// DefaultTrustedProxies lists the peers whose forwarding headers are honoured
// when TRUSTED_PROXIES is unset: loopback and private ranges.
var DefaultTrustedProxies = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
}

// TrustedProxies is read from TRUSTED_PROXIES, a comma separated list of
// CIDRs or addresses. "none" trusts no peer.
var TrustedProxies = ParseTrustedProxiesFromEnv(DefaultTrustedProxies)

// ParseTrustedProxiesFromEnv parses TRUSTED_PROXIES, falling back to def when
// the variable is unset or holds an invalid entry.
func ParseTrustedProxiesFromEnv(def []netip.Prefix) []netip.Prefix {
	val := strings.TrimSpace(os.Getenv("TRUSTED_PROXIES"))
	if val == "" {
		return def
	}
	out, err := ParseTrustedProxies(val)
	if err != nil {
		slog.Warn("ignoring TRUSTED_PROXIES", "err", err)
		return def
	}
	return out
}

// ParseTrustedProxies parses a comma separated list of CIDRs or bare
// addresses. "none" yields an empty list.
func ParseTrustedProxies(val string) ([]netip.Prefix, error) {
	if strings.EqualFold(strings.TrimSpace(val), "none") {
		return []netip.Prefix{}, nil
	}

	var out []netip.Prefix
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", part, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", part, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// IPKeyExtractor returns the client IP using TrustedProxies.
func IPKeyExtractor(r *http.Request) string {
	return ClientIPFrom(r, TrustedProxies)
}

// ClientIPFrom resolves the client address of r. Forwarding headers are only
// read when the connection comes from a trusted proxy. X-Forwarded-For is
// walked from the right and the first hop outside trusted is returned, so
// hops a client prepends itself are never used. X-Real-IP is the fallback,
// then the connection address.
func ClientIPFrom(r *http.Request, trusted []netip.Prefix) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var leftmost string
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) {
				return hop
			}
			leftmost = hop
		}
		if leftmost != "" {
			return leftmost
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP is IPKeyExtractor with an "unknown" fallback for logging.
func ClientIP(r *http.Request) string {
	if ip := IPKeyExtractor(r); ip != "" {
		return ip
	}
	return "unknown"
}

// UserIDKeyExtractor extracts the authenticated subject from the context.
func UserIDKeyExtractor(r *http.Request) string {
	return UserID(r.Context())
}

// CompositeKeyExtractor joins the non-empty results of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// RateLimiter is satisfied by *ratelimit.Limiter.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, id string, limit int, window time.Duration) ratelimit.Decision
}

// RateLimitObserver is told about every rejected request.
type RateLimitObserver func(r *http.Request, key string, cfg RateLimitConfig, d ratelimit.Decision)

// RateLimitMiddleware counts requests per extracted key against cfg. A
// rejection answers 429 with Retry-After set to the rest of the window.
func RateLimitMiddleware(l RateLimiter, cfg RateLimitConfig, keyExtractor KeyExtractor, observers ...RateLimitObserver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowRequest(w, r, l, cfg, keyExtractor, observers) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allowRequest applies one rate limit step and writes the 429 reply when
// the request is rejected.
func allowRequest(w http.ResponseWriter, r *http.Request, l RateLimiter, cfg RateLimitConfig, keyExtractor KeyExtractor, observers []RateLimitObserver) bool {
	log := slogx.FromContext(r.Context())

	key := keyExtractor(r)
	if key == "" {
		log.Warn("rate limit: unable to extract key, allowing request")
		return true
	}

	d := l.CheckAndIncrement(r.Context(), cfg.Name+":"+key, cfg.Requests, cfg.Window)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}

	if d.Allowed {
		return true
	}

	retryAfter := ratelimit.RetryAfterSeconds(d.RetryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	log.Warn("rate limit exceeded",
		slog.String("profile", cfg.Name),
		slog.String("key", key),
		slog.String("endpoint", r.URL.Path),
		slog.Int("retry_after", retryAfter),
		slog.Bool("blocked", d.Blocked),
	)
	for _, obs := range observers {
		obs(r, key, cfg, d)
	}

	WriteError(w, http.StatusTooManyRequests, MsgTooManyRequests)
	return false
}

// RateLimitByIP creates a rate limiter that limits by IP address only.
func RateLimitByIP(l RateLimiter, cfg RateLimitConfig, observers ...RateLimitObserver) Middleware {
	return RateLimitMiddleware(l, cfg, IPKeyExtractor, observers...)
}

// RateLimitByUser limits by authenticated subject plus IP.
func RateLimitByUser(l RateLimiter, cfg RateLimitConfig, observers ...RateLimitObserver) Middleware {
	return RateLimitMiddleware(l, cfg, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor), observers...)
}

// GlobalRateLimit applies api to /api/ paths and page to the rest.
func GlobalRateLimit(l RateLimiter, api, page RateLimitConfig, observers ...RateLimitObserver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := page
			if strings.HasPrefix(r.URL.Path, "/api/") {
				cfg = api
			}
			if !allowRequest(w, r, l, cfg, IPKeyExtractor, observers) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
