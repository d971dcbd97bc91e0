// Package csrf implements a registry of single-use, time limited
// anti-forgery tokens.
//
// A token moves through issued, registered, zero or more successful
// verifications, and finally consumed. Used and expired tokens never verify
// again. A consumed record stays behind as a tombstone until its lifetime has
// passed so the same token string cannot be registered a second time;
// CleanupExpired and capacity eviction reclaim the rest.
package csrf

import (
	"context"
	"encoding/base64"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/alimatrix/pkg/cryptox"
)

var issuedRandomLength = base64.RawURLEncoding.EncodedLen(cryptox.TokenSize256)

// Stats summarises the registry contents.
type Stats struct {
	Total   int `json:"total"`
	Used    int `json:"used"`
	Expired int `json:"expired"`
	Valid   int `json:"valid"`
}

// Rotation pairs a replaced token with its successor.
type Rotation struct {
	Old string
	New string
}

// Registry issues and tracks tokens. Verify and Consume are safe to race on
// the same token: at most one Consume succeeds.
type Registry struct {
	cfg    Config
	store  TokenStore
	now    func() time.Time
	logger *slog.Logger

	// mu serialises the multi-step maintenance paths (register with
	// eviction, cleanup, rotate) within one process.
	mu sync.Mutex
}

type Option func(*Registry)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry builds a registry over store. A nil store selects a fresh
// MemoryStore.
func NewRegistry(cfg Config, store TokenStore, opts ...Option) (*Registry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = NewMemoryStore()
	}

	r := &Registry{
		cfg:    cfg,
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the effective configuration.
func (r *Registry) Config() Config { return r.cfg }

// Issue builds a new token string: issue time in base36 milliseconds, 256
// random bits, and a short digest of the fingerprint when one is given. It
// does not register the token.
func (r *Registry) Issue(fingerprint string) (string, error) {
	return r.issue(r.digest(fingerprint))
}

func (r *Registry) issue(fpDigest string) (string, error) {
	random, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strconv.FormatInt(r.now().UnixMilli(), 36))
	b.WriteByte('.')
	b.WriteString(random)
	if fpDigest != "" {
		b.WriteByte('.')
		b.WriteString(fpDigest[:16])
	}
	return b.String(), nil
}

// Register stores token as unused. Malformed tokens are rejected before any
// state changes, as is any token string the registry already holds, whether
// live or consumed. Expired records are reclaimed first, and when the
// registry is still full the oldest EvictFraction of MaxTokens is dropped.
//
// Tokens in the Issue format carry their issue time. Such a token is dated
// from that time, so registering it late never extends its lifetime, and one
// older than Lifetime is refused.
func (r *Registry) Register(ctx context.Context, token, fingerprint string) bool {
	if !r.wellFormed(token) {
		r.logger.Warn("csrf: rejected malformed token on register", slog.Int("length", len(token)))
		return false
	}

	now := r.now().UTC()
	issuedAt := now
	if stamped, ok := issuedAtOf(token); ok {
		if now.Sub(stamped) > r.cfg.Lifetime {
			r.logger.Warn("csrf: rejected expired token on register")
			return false
		}
		if stamped.Before(now) {
			issuedAt = stamped
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupLocked(ctx)

	_, exists, err := r.store.Get(ctx, token)
	if err != nil {
		r.logger.Error("csrf: load token", slog.Any("err", err))
		return false
	}
	if exists {
		r.logger.Warn("csrf: token already registered")
		return false
	}

	n, err := r.store.Len(ctx)
	if err != nil {
		r.logger.Error("csrf: count tokens", slog.Any("err", err))
		return false
	}
	if n >= r.cfg.MaxTokens {
		r.evictOldestLocked(ctx)
	}

	rec := Record{
		Token:       token,
		IssuedAt:    issuedAt,
		Fingerprint: r.digest(fingerprint),
	}
	added, err := r.store.Insert(ctx, rec)
	if err != nil {
		r.logger.Error("csrf: store token", slog.Any("err", err))
		return false
	}
	if !added {
		r.logger.Warn("csrf: token already registered")
	}
	return added
}

// UsableUntil is the latest time a token issued at issuedAt is guaranteed to
// verify. Rotate replaces unused tokens once they pass RotationAge, so this is
// earlier than the hard Lifetime.
func (r *Registry) UsableUntil(issuedAt time.Time) time.Time {
	return issuedAt.Add(r.cfg.RotationAge)
}

// Verify reports whether token is registered, unused, unexpired and, when
// both sides carry one, bound to the same fingerprint. It never marks the
// token used; an expired record is deleted.
func (r *Registry) Verify(ctx context.Context, token, fingerprint string) bool {
	if !r.wellFormed(token) {
		r.logger.Warn("csrf: malformed token on verify")
		return false
	}

	rec, ok, err := r.store.Get(ctx, token)
	switch {
	case err != nil:
		r.logger.Error("csrf: load token", slog.Any("err", err))
		return false
	case !ok:
		r.logger.Warn("csrf: token not registered")
		return false
	case rec.Used:
		r.logger.Warn("csrf: attempt to reuse token")
		return false
	}

	if r.expired(rec) {
		r.logger.Warn("csrf: token expired")
		if err := r.store.Delete(ctx, token); err != nil {
			r.logger.Error("csrf: delete expired token", slog.Any("err", err))
		}
		return false
	}

	if fingerprint != "" && rec.Fingerprint != "" && !cryptox.Equal(rec.Fingerprint, r.digest(fingerprint)) {
		r.logger.Warn("csrf: fingerprint mismatch")
		return false
	}

	return true
}

// Consume marks token used. It reports false for unknown, expired or
// already consumed tokens.
func (r *Registry) Consume(ctx context.Context, token string) bool {
	ok, err := r.store.MarkUsed(ctx, token, r.now().Add(-r.cfg.Lifetime))
	if err != nil {
		r.logger.Error("csrf: consume token", slog.Any("err", err))
		return false
	}
	return ok
}

// CleanupExpired removes expired records and returns how many were removed.
// Consumed records are kept until they expire.
func (r *Registry) CleanupExpired(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cleanupLocked(ctx)
}

func (r *Registry) cleanupLocked(ctx context.Context) int {
	recs, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error("csrf: list tokens", slog.Any("err", err))
		return 0
	}

	var stale []string
	for _, rec := range recs {
		if r.expired(rec) {
			stale = append(stale, rec.Token)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	if err := r.store.Delete(ctx, stale...); err != nil {
		r.logger.Error("csrf: delete stale tokens", slog.Any("err", err))
		return 0
	}
	return len(stale)
}

func (r *Registry) evictOldestLocked(ctx context.Context) {
	recs, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error("csrf: list tokens", slog.Any("err", err))
		return
	}

	// Tombstones are not evicted.
	recs = slices.DeleteFunc(recs, func(rec Record) bool { return rec.Used })
	slices.SortFunc(recs, func(a, b Record) int { return a.IssuedAt.Compare(b.IssuedAt) })

	n := max(1, int(math.Floor(float64(r.cfg.MaxTokens)*r.cfg.EvictFraction)))
	n = min(n, len(recs))
	if n == 0 {
		r.logger.Warn("csrf: registry full of consumed tokens, nothing to evict")
		return
	}

	victims := make([]string, n)
	for i := range n {
		victims[i] = recs[i].Token
	}
	if err := r.store.Delete(ctx, victims...); err != nil {
		r.logger.Error("csrf: evict tokens", slog.Any("err", err))
		return
	}
	r.logger.Info("csrf: registry full, evicted oldest tokens", slog.Int("evicted", n))
}

// Rotate replaces every unused, unexpired token older than RotationAge with
// a fresh token carrying the same fingerprint binding.
func (r *Registry) Rotate(ctx context.Context) []Rotation {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error("csrf: list tokens", slog.Any("err", err))
		return nil
	}

	now := r.now()
	var out []Rotation
	for _, rec := range recs {
		if rec.Used || r.expired(rec) || now.Sub(rec.IssuedAt) <= r.cfg.RotationAge {
			continue
		}

		next, err := r.issue(rec.Fingerprint)
		if err != nil {
			r.logger.Error("csrf: issue rotated token", slog.Any("err", err))
			continue
		}

		added, err := r.store.Insert(ctx, Record{Token: next, IssuedAt: now.UTC(), Fingerprint: rec.Fingerprint})
		if err != nil {
			r.logger.Error("csrf: store rotated token", slog.Any("err", err))
			continue
		}
		if !added {
			continue
		}
		if err := r.store.Delete(ctx, rec.Token); err != nil {
			r.logger.Error("csrf: delete rotated token", slog.Any("err", err))
		}
		out = append(out, Rotation{Old: rec.Token, New: next})
	}
	return out
}

// Stats counts records by state. Each record lands in exactly one of Used,
// Expired or Valid.
func (r *Registry) Stats(ctx context.Context) Stats {
	recs, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error("csrf: list tokens", slog.Any("err", err))
		return Stats{}
	}

	s := Stats{Total: len(recs)}
	for _, rec := range recs {
		switch {
		case rec.Used:
			s.Used++
		case r.expired(rec):
			s.Expired++
		default:
			s.Valid++
		}
	}
	return s
}

func (r *Registry) wellFormed(token string) bool {
	return len(token) >= r.cfg.MinLength && len(token) <= r.cfg.MaxLength
}

// issuedAtOf reads the issue time from a token in the Issue format: a base36
// millisecond prefix followed by the 256-bit random part and an optional
// fingerprint digest.
func issuedAtOf(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || len(parts) > 3 || len(parts[1]) != issuedRandomLength {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func (r *Registry) expired(rec Record) bool {
	return r.now().Sub(rec.IssuedAt) > r.cfg.Lifetime
}

func (r *Registry) digest(fingerprint string) string {
	if fingerprint == "" {
		return ""
	}
	return cryptox.KeyedDigest(r.cfg.Secret, fingerprint)
}
