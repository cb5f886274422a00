// Package config provides centralized configuration management for the importer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// A single *Config is built once in main and passed explicitly to every
// component that needs it. Nothing in this module reads the environment after
// startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Upload   UploadConfig
	Import   ImportConfig
	Worker   WorkerConfig
	Webhook  WebhookConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8000)
	Port int `env:"SERVER_PORT" default:"8000"`

	// ReadTimeout is the maximum duration for reading the request (default: 5m, uploads are large)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"5m"`

	// WriteTimeout is the maximum duration for writing a response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown of the server and the worker (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// CORSOrigins is a comma-separated list of allowed origins (default: *)
	CORSOrigins []string `env:"CORS_ORIGINS" default:"*"`
}

// DatabaseConfig holds product store connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig holds job queue broker and result registry settings.
type RedisConfig struct {
	// URL is the broker endpoint used for the job queue (required)
	URL string `env:"REDIS_URL" envAlt:"CELERY_BROKER_URL" required:"true"`

	// ResultURL is the job status registry endpoint (default: same as URL)
	ResultURL string `env:"REDIS_RESULT_URL" envAlt:"CELERY_RESULT_BACKEND"`

	// QueueKey is the list key jobs are pushed to (default: import:queue)
	QueueKey string `env:"JOB_QUEUE_KEY" default:"import:queue"`

	// ResultTTL is how long a job snapshot is retained after its last write (default: 24h)
	ResultTTL time.Duration `env:"JOB_RESULT_TTL" default:"24h"`
}

// ResultEndpoint returns the registry URL, falling back to the broker URL.
func (c *RedisConfig) ResultEndpoint() string {
	if c.ResultURL != "" {
		return c.ResultURL
	}
	return c.URL
}

// UploadConfig holds upload receiving settings.
type UploadConfig struct {
	// Dir is where accepted CSV files wait for a worker (default: ./uploads)
	Dir string `env:"UPLOAD_DIR" default:"./uploads"`

	// MaxFileSize is the maximum allowed file size in bytes (default: 500MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" envAlt:"MAX_UPLOAD_SIZE" default:"524288000"`

	// MaxConcurrent is the maximum number of uploads being written at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// OrphanTTL is the age after which an unclaimed upload file is swept (default: 24h)
	OrphanTTL time.Duration `env:"UPLOAD_ORPHAN_TTL" default:"24h"`

	// SweepInterval is how often the janitor runs (default: 1h)
	SweepInterval time.Duration `env:"UPLOAD_SWEEP_INTERVAL" default:"1h"`
}

// ImportConfig holds import executor settings.
type ImportConfig struct {
	// ChunkSize is the number of CSV rows committed per transaction (default: 5000)
	ChunkSize int `env:"IMPORT_CHUNK_SIZE" envAlt:"CHUNK_SIZE" default:"5000"`

	// PollInterval is how often the progress stream re-reads job state (default: 500ms)
	PollInterval time.Duration `env:"PROGRESS_POLL_INTERVAL" default:"500ms"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// Concurrency is the number of jobs one worker process runs at once (default: 2)
	Concurrency int `env:"WORKER_CONCURRENCY" default:"2"`

	// DequeueTimeout is how long a blocking pop waits before re-checking shutdown (default: 5s)
	DequeueTimeout time.Duration `env:"WORKER_DEQUEUE_TIMEOUT" default:"5s"`
}

// WebhookConfig holds outbound delivery settings.
type WebhookConfig struct {
	// Timeout bounds each individual delivery (default: 10s)
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit is requests per minute for the upload endpoint (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
