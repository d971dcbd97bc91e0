package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env       string // Environment (dev, test, production) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	DatabaseFile string // Optional: path to SQLite database file (default: ./alimatrix.db)
	RedisURL     string // Optional: shared token and counter store; in-memory when empty
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	CSRFSecret      string        // Optional: fingerprint digest key; random per process when empty
	CSRFLifetime    time.Duration // Optional: token lifetime (default: 30m)
	CSRFRotationAge time.Duration // Optional: age at which unused tokens rotate (default: 15m)
	CSRFMaxTokens   int           // Optional: registry capacity (default: 1000)

	AllowedOrigins []string // Optional: comma separated origins accepted by the subscribe endpoint

	AdminUsername   string        // Optional: admin login is disabled when empty
	AdminPassword   string        // Optional: argon2id PHC string from `alimatrix hash-password`
	AdminTOTPSecret string        // Optional: base32 TOTP secret for the second factor
	AdminJWTSecret  string        // Optional: HS256 key; random per process when empty
	AdminSessionTTL time.Duration // Optional: admin token lifetime (default: 15m)

	AuditQueueSize     int // Optional: buffered audit writes (default: 1024)
	AuditRetentionDays int // Optional: audit retention for low risk entries (default: 365)

	CleanupInterval      time.Duration // Token and counter cleanup interval (default: 5m)
	HousekeepingInterval time.Duration // Audit retention interval (default: 1h)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)

	// RateLimitBypass disables every limit. Only honoured in dev.
	RateLimitBypass bool
}

const (
	EnvDev        = "dev"
	EnvTest       = "test"
	EnvProduction = "production"
)

var ErrInvalidConfig = errors.New("app: invalid config")

func LoadConfig() Config {
	return Config{
		Env:       getEnvOrDefault("ENV", EnvDev),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "alimatrix.db"),
		RedisURL:     os.Getenv("REDIS_URL"),
		PepperFile:   getEnvOrDefault("PEPPER_FILE", "pepper"),

		CSRFSecret:      os.Getenv("CSRF_SECRET"),
		CSRFLifetime:    getEnvDurationOrDefault("CSRF_TOKEN_LIFETIME", 30*time.Minute),
		CSRFRotationAge: getEnvDurationOrDefault("CSRF_ROTATION_AGE", 15*time.Minute),
		CSRFMaxTokens:   getEnvIntOrDefault("CSRF_MAX_TOKENS", 1000),

		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),

		AdminUsername:   os.Getenv("ADMIN_USERNAME"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminTOTPSecret: os.Getenv("ADMIN_TOTP_SECRET"),
		AdminJWTSecret:  os.Getenv("ADMIN_JWT_SECRET"),
		AdminSessionTTL: getEnvDurationOrDefault("ADMIN_SESSION_TTL", 15*time.Minute),

		AuditQueueSize:     getEnvIntOrDefault("AUDIT_QUEUE_SIZE", 1024),
		AuditRetentionDays: getEnvIntOrDefault("AUDIT_RETENTION_DAYS", 365),

		CleanupInterval:      getEnvDurationOrDefault("CLEANUP_INTERVAL", 5*time.Minute),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		RateLimitBypass: getEnvBoolOrDefault("RATELIMIT_DEV_BYPASS", false),
	}
}

// Validate rejects combinations that would weaken a production deployment.
func (c Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvTest, EnvProduction:
	default:
		return fmt.Errorf("%w: unknown ENV %q", ErrInvalidConfig, c.Env)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.CSRFRotationAge >= c.CSRFLifetime {
		return fmt.Errorf("%w: CSRF_ROTATION_AGE must be shorter than CSRF_TOKEN_LIFETIME", ErrInvalidConfig)
	}
	if c.RateLimitBypass && c.Env != EnvDev {
		return fmt.Errorf("%w: RATELIMIT_DEV_BYPASS is only allowed in dev", ErrInvalidConfig)
	}
	if c.Env == EnvProduction {
		if c.CSRFSecret == "" {
			return fmt.Errorf("%w: CSRF_SECRET is required in production", ErrInvalidConfig)
		}
		if c.AdminUsername != "" && len(c.AdminJWTSecret) < 32 {
			return fmt.Errorf("%w: ADMIN_JWT_SECRET must be at least 32 bytes in production", ErrInvalidConfig)
		}
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return fmt.Errorf("%w: ADMIN_USERNAME and ADMIN_PASSWORD_HASH must be set together", ErrInvalidConfig)
	}
	return nil
}

// StrictHeaders reports whether spoofed forwarding headers are refused.
func (c Config) StrictHeaders() bool {
	return c.Env != EnvDev
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
