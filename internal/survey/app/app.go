package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/alimatrix/internal/survey/audit"
	httpapi "github.com/aussiebroadwan/alimatrix/internal/survey/http"
	"github.com/aussiebroadwan/alimatrix/internal/survey/service"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store/drivers/sqlite"
	"github.com/aussiebroadwan/alimatrix/pkg/cryptox"
	"github.com/aussiebroadwan/alimatrix/pkg/csrf"
	"github.com/aussiebroadwan/alimatrix/pkg/jwtx"
	"github.com/aussiebroadwan/alimatrix/pkg/ratelimit"
	"github.com/aussiebroadwan/alimatrix/pkg/redisx"
	"github.com/aussiebroadwan/alimatrix/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName   = "alimatrix"
	adminAudience = "alimatrix-admin"
)

// Application holds the survey service and everything it owns.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	redis   *redis.Client // nil without REDIS_URL
	tokens  *csrf.Registry
	limiter *ratelimit.Limiter
	audit   *audit.Logger
	signer  *jwtx.HS256

	// Services
	submissionService   *service.SubmissionService
	adminAuthService    *service.AdminAuthService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds the application. Nothing is started.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := slogx.Config{
		Service: serviceName,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}
	app := &Application{
		cfg:    cfg,
		logger: slogx.New(logCfg),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := app.initSecurity(ctx, logCfg); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.audit.Start()
	app.housekeepingService.Start()

	app.logger.Info("survey service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"redis", app.redis != nil,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains HTTP traffic, stops background work, flushes pending
// audit writes and closes the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down survey service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "err", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "err", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.audit.Stop(ctx); err != nil {
		app.logger.Error("audit queue not drained", "err", err, "dropped", app.audit.Dropped())
	}

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("survey service stopped")
	return nil
}

func (app *Application) closeStores() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "err", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "err", err)
		return err
	}
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSecurity builds the token registry, the limiter and the audit logger.
// With REDIS_URL set, tokens and counters are shared between instances.
func (app *Application) initSecurity(ctx context.Context, logCfg slogx.Config) error {
	var (
		tokenStore   csrf.TokenStore
		counterStore ratelimit.Store
	)
	if app.cfg.RedisURL != "" {
		client, err := redisx.Connect(ctx, app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		tokenStore = csrf.NewRedisStore(client, app.cfg.CSRFLifetime)
		counterStore = ratelimit.NewRedisStore(client)
		app.logger.Info("using redis for csrf tokens and rate limit counters")
	}

	secret, err := secretOrRandom(app.cfg.CSRFSecret)
	if err != nil {
		return fmt.Errorf("failed to derive csrf secret: %w", err)
	}
	if app.cfg.CSRFSecret == "" {
		app.logger.Warn("CSRF_SECRET not set, fingerprints will not survive a restart")
	}

	tokens, err := csrf.NewRegistry(csrf.Config{
		Lifetime:    app.cfg.CSRFLifetime,
		RotationAge: app.cfg.CSRFRotationAge,
		MaxTokens:   app.cfg.CSRFMaxTokens,
		Secret:      secret,
	}, tokenStore, csrf.WithLogger(app.logger))
	if err != nil {
		return fmt.Errorf("failed to initialize csrf registry: %w", err)
	}
	app.tokens = tokens

	if app.cfg.RateLimitBypass {
		app.logger.Warn("rate limiting disabled by RATELIMIT_DEV_BYPASS")
	}
	app.limiter = ratelimit.New(counterStore,
		ratelimit.WithLogger(app.logger),
		ratelimit.WithDevelopmentBypass(app.cfg.RateLimitBypass),
	)

	app.audit = audit.New(app.db,
		audit.WithLogger(app.logger),
		audit.WithFallback(slogx.Fallback(logCfg)),
		audit.WithQueueSize(app.cfg.AuditQueueSize),
	)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	app.submissionService = &service.SubmissionService{Store: app.db}

	jwtSecret, err := secretOrRandom(app.cfg.AdminJWTSecret)
	if err != nil {
		return fmt.Errorf("failed to derive admin jwt secret: %w", err)
	}
	signer, err := jwtx.NewHS256(jwtSecret, serviceName, []string{adminAudience})
	if err != nil {
		return fmt.Errorf("failed to initialize admin signer: %w", err)
	}
	app.signer = signer

	var pepper string
	if app.cfg.AdminUsername != "" {
		if pepper, err = cryptox.LoadPepper(app.cfg.PepperFile); err != nil {
			return fmt.Errorf("failed to load pepper: %w", err)
		}
	} else {
		app.logger.Info("admin login disabled, ADMIN_USERNAME not set")
	}

	app.adminAuthService = &service.AdminAuthService{
		Username:     app.cfg.AdminUsername,
		PasswordHash: app.cfg.AdminPassword,
		TOTPSecret:   app.cfg.AdminTOTPSecret,
		Hasher:       cryptox.PasswordHasher{Pepper: pepper},
		Signer:       signer,
		Issuer:       serviceName,
		Audience:     []string{adminAudience},
		TTL:          app.cfg.AdminSessionTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.tokens,
		app.limiter,
		app.audit,
		app.logger,
		app.cfg.CleanupInterval,
		app.cfg.HousekeepingInterval,
		app.cfg.AuditRetentionDays,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.limiter,
		app.cfg.StrictHeaders(),
		app.logger,
	)

	router.Tokens = app.tokens
	router.Audit = app.audit
	router.AllowedOrigins = app.cfg.AllowedOrigins
	router.SubmissionService = app.submissionService
	router.AdminAuthService = app.adminAuthService
	if app.redis != nil {
		client := app.redis
		router.CachePing = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// secretOrRandom returns s as bytes, or 32 random bytes when s is empty.
func secretOrRandom(s string) ([]byte, error) {
	if s != "" {
		return []byte(s), nil
	}
	tok, err := cryptox.GenerateToken(32)
	if err != nil {
		return nil, err
	}
	return []byte(tok), nil
}
