// Package audit records audit entries and security incidents.
//
// Writes never fail the caller: every call returns an Outcome, and storage
// errors are reported to a throttled fallback logger instead. In async mode a
// single worker drains a bounded FIFO queue, so entries enqueued by one
// request are persisted in the order they were logged.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
	"github.com/aussiebroadwan/alimatrix/pkg/idx"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
)

// Outcome reports what happened to one write.
type Outcome int

const (
	// Queued means the write was accepted by the async worker.
	Queued Outcome = iota + 1
	// Persisted means the write reached the store synchronously.
	Persisted
	// Dropped means the queue was full or closed.
	Dropped
	// Failed means the synchronous store write returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Queued:
		return "queued"
	case Persisted:
		return "persisted"
	case Dropped:
		return "dropped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ErrStopped is returned by Stop when called twice.
var ErrStopped = errors.New("audit: logger already stopped")

const (
	DefaultQueueSize    = 1024
	DefaultWriteTimeout = 5 * time.Second
)

type job struct {
	kind string
	run  func(ctx context.Context) error
}

// Logger writes audit entries and incidents to a store.
type Logger struct {
	store    store.Store
	now      func() time.Time
	logger   *slog.Logger
	fallback *slog.Logger

	writeTimeout time.Duration
	queueSize    int
	sometimes    rate.Sometimes

	mu      sync.RWMutex
	queue   chan job
	started bool
	closed  bool
	done    chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

type Option func(*Logger)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) { l.logger = logger }
}

// WithFallback sets where failed writes are reported. The default is
// slogx.Fallback on stderr.
func WithFallback(logger *slog.Logger) Option {
	return func(l *Logger) { l.fallback = logger }
}

// WithQueueSize sets the async queue capacity used once Start is called.
func WithQueueSize(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.writeTimeout = d
		}
	}
}

// New returns a synchronous logger. Call Start to move writes off the
// calling goroutine.
func New(st store.Store, opts ...Option) *Logger {
	l := &Logger{
		store:        st,
		now:          time.Now,
		logger:       slog.Default(),
		writeTimeout: DefaultWriteTimeout,
		queueSize:    DefaultQueueSize,
		// First ten failures are always reported, then one every 30s.
		sometimes: rate.Sometimes{First: 10, Interval: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback == nil {
		l.fallback = slogx.Fallback(slogx.Config{Service: "alimatrix-audit"})
	}
	return l
}

// Start launches the single worker. It is a no-op when already started.
func (l *Logger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started || l.closed {
		return
	}
	l.queue = make(chan job, l.queueSize)
	l.done = make(chan struct{})
	l.started = true

	go l.worker()
	l.logger.Info("audit worker started", slog.Int("queue_size", l.queueSize))
}

// Stop closes the queue and waits for the worker to drain it or for ctx to
// end. Writes after Stop are dropped.
func (l *Logger) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrStopped
	}
	l.closed = true
	started := l.started
	if started {
		close(l.queue)
	}
	l.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-l.done:
		l.logger.Info("audit worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Logger) worker() {
	defer close(l.done)
	for j := range l.queue {
		l.run(j)
	}
}

// run executes one write with its own timeout, detached from the request.
func (l *Logger) run(j job) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.writeTimeout)
	defer cancel()

	if err := j.run(ctx); err != nil {
		l.failed.Add(1)
		l.report("audit write failed", j.kind, err)
		return err
	}
	return nil
}

func (l *Logger) submit(j job) Outcome {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		l.dropped.Add(1)
		l.report("audit write dropped", j.kind, ErrStopped)
		return Dropped
	}
	if !l.started {
		l.mu.RUnlock()
		if err := l.run(j); err != nil {
			return Failed
		}
		return Persisted
	}

	select {
	case l.queue <- j:
		l.mu.RUnlock()
		return Queued
	default:
		l.mu.RUnlock()
		l.dropped.Add(1)
		l.report("audit write dropped", j.kind, errors.New("audit: queue full"))
		return Dropped
	}
}

func (l *Logger) report(msg, kind string, err error) {
	l.sometimes.Do(func() {
		l.fallback.Error(msg,
			slog.String("kind", kind),
			slog.Any("err", err),
			slog.Uint64("dropped_total", l.dropped.Load()),
			slog.Uint64("failed_total", l.failed.Load()),
		)
	})
}

// Dropped returns how many writes were discarded since New.
func (l *Logger) Dropped() uint64 { return l.dropped.Load() }

// Failures returns how many writes reached the store and failed.
func (l *Logger) Failures() uint64 { return l.failed.Load() }

// Log records e. ID and CreatedAt are assigned here; an unknown risk level
// becomes low. Details and RequestData are redacted before queueing.
func (l *Logger) Log(ctx context.Context, e domain.AuditLog) Outcome {
	e = l.prepareEntry(e)
	slogx.FromContext(ctx).Debug("audit",
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("risk", string(e.RiskLevel)),
	)
	return l.submit(job{kind: "audit_log", run: func(ctx context.Context) error {
		return l.store.AuditLogs().CreateAuditLog(ctx, e)
	}})
}

// LogSecurityIncident records inc with the same redaction rules as Log.
func (l *Logger) LogSecurityIncident(ctx context.Context, inc domain.SecurityIncident) Outcome {
	inc = l.prepareIncident(inc)
	slogx.FromContext(ctx).Warn("security incident",
		slog.String("type", inc.Type),
		slog.String("severity", string(inc.Severity)),
		slog.String("ip", inc.IPAddress),
	)
	return l.submit(job{kind: "security_incident", run: func(ctx context.Context) error {
		return l.store.SecurityIncidents().CreateSecurityIncident(ctx, inc)
	}})
}

func (l *Logger) prepareEntry(e domain.AuditLog) domain.AuditLog {
	now := l.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.ID == "" {
		e.ID = idx.NewAt(e.CreatedAt).String()
	}
	if !e.RiskLevel.Valid() {
		e.RiskLevel = domain.RiskLow
	}
	e.UserAgent = capRunes(e.UserAgent, MaxUserAgentLength)
	e.ErrorMessage = Truncate(e.ErrorMessage, MaxValueLength)
	e.Details = Redact(e.Details)
	e.RequestData = Redact(e.RequestData)
	return e
}

func (l *Logger) prepareIncident(inc domain.SecurityIncident) domain.SecurityIncident {
	now := l.now().UTC()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now
	}
	if inc.ID == "" {
		inc.ID = idx.NewAt(inc.CreatedAt).String()
	}
	if !inc.Severity.Valid() {
		inc.Severity = domain.RiskMedium
	}
	inc.UserAgent = capRunes(inc.UserAgent, MaxUserAgentLength)
	inc.Description = Truncate(inc.Description, MaxValueLength)
	inc.RequestData = Redact(inc.RequestData)
	if len(inc.AffectedResources) > 0 {
		inc.AffectedResources = append([]string(nil), inc.AffectedResources...)
	}
	return inc
}
