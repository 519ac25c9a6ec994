// Package config provides centralized configuration management for the ledger
// service. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Upload       UploadConfig
	Rate         RateLimitConfig
	Security     SecurityConfig
	Logging      LoggingConfig
	Mail         MailConfig
	Events       EventsConfig
	Housekeeping HousekeepingConfig
	Ledger       LedgerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 5000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"5000"`

	// PublicURL is the externally reachable base URL, used in password reset links
	PublicURL string `env:"PUBLIC_URL" default:"http://localhost:5000"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, bounded by RequestTimeout)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the embedded schema on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// UploadConfig holds CSV upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel uploads (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single ingestion, independent of the client (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`

	// RejectionSample is how many rejected rows are returned in full (default: 5)
	RejectionSample int `env:"UPLOAD_REJECTION_SAMPLE" default:"5"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds authentication and transport security settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens (required)
	JWTSecret string `env:"JWT_SECRET" required:"true"`

	// TokenTTL is how long a session token stays valid (default: 30 days)
	TokenTTL time.Duration `env:"JWT_TTL" default:"720h"`

	// CookieName is the session cookie name (default: token)
	CookieName string `env:"AUTH_COOKIE_NAME" default:"token"`

	// CookieSecure marks the session cookie Secure (default: false)
	CookieSecure bool `env:"AUTH_COOKIE_SECURE" default:"false"`

	// ResetTokenTTL is how long a password reset link stays valid (default: 15m)
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" default:"15m"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// AllowedOrigins is a comma-separated CORS allow-list (default: local frontend)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MailConfig holds outgoing mail settings. An empty Host selects the
// log-only mailer.
type MailConfig struct {
	Host     string `env:"SMTP_HOST" envAlt:"EMAIL_HOST"`
	Port     int    `env:"SMTP_PORT" envAlt:"EMAIL_PORT" default:"587"`
	Username string `env:"SMTP_USER" envAlt:"EMAIL_USER"`
	Password string `env:"SMTP_PASS" envAlt:"EMAIL_PASS"`
	From     string `env:"MAIL_FROM" default:"no-reply@localhost"`
}

// Enabled reports whether SMTP delivery is configured.
func (c MailConfig) Enabled() bool {
	return c.Host != ""
}

// EventsConfig holds Kafka settings. Empty Brokers disables publishing.
type EventsConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS"`
	UploadTopic  string        `env:"KAFKA_UPLOAD_TOPIC" default:"ledger.upload.completed"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" default:"10s"`
}

// Enabled reports whether events should be published.
func (c EventsConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// HousekeepingConfig holds the cron schedules for cleanup jobs.
type HousekeepingConfig struct {
	// Enabled controls whether the cleanup jobs run in this process (default: true)
	Enabled bool `env:"HOUSEKEEPING_ENABLED" default:"true"`

	// Timezone is the IANA zone the schedules are evaluated in (default: America/Sao_Paulo)
	Timezone string `env:"HOUSEKEEPING_TZ" default:"America/Sao_Paulo"`

	// RegistrationSchedule purges reviewed registration requests (default: daily at 03:00)
	RegistrationSchedule string `env:"HOUSEKEEPING_REGISTRATION_SCHEDULE" default:"0 3 * * *"`

	// ResetTokenSchedule purges used and expired reset tokens (default: every 30 minutes)
	ResetTokenSchedule string `env:"HOUSEKEEPING_RESET_TOKEN_SCHEDULE" default:"*/30 * * * *"`

	// RetentionDays is how long reviewed registration requests are kept (default: 30)
	RetentionDays int `env:"HOUSEKEEPING_RETENTION_DAYS" default:"30"`
}

// LedgerConfig holds ingestion settings.
type LedgerConfig struct {
	// AliasFile is an optional YAML file overriding column aliases
	AliasFile string `env:"LEDGER_ALIAS_FILE"`

	// Timezone is used when a date has to be parsed generically (default: process local time)
	Timezone string `env:"LEDGER_TZ"`
}

// Location resolves Timezone. An empty value means time.Local.
func (c LedgerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
