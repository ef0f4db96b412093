// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Calculation CalculationConfig
	Rate        RateLimitConfig
	Security    SecurityConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StorageConfig holds file storage settings. The databases directory keeps the
// uploaded workbooks, the pointer file records which one is active, and the
// versions directory holds saved assessment snapshots. The derived paths
// default to subdirectories of DataDir when not set explicitly.
type StorageConfig struct {
	// DataDir is the root directory for all persisted state (default: ./data)
	DataDir string `env:"DATA_DIR" default:"./data"`

	// DatabasesDir is where workbook files live (default: <DataDir>/databases)
	DatabasesDir string `env:"DATABASES_DIR"`

	// PointerFile is the active-database pointer (default: <DatabasesDir>/active.json)
	PointerFile string `env:"ACTIVE_POINTER_FILE"`

	// BackupsDir is where pointer backups go (default: <DatabasesDir>/backups)
	BackupsDir string `env:"BACKUPS_DIR"`

	// VersionsDir is where saved versions live (default: <DataDir>/versions)
	VersionsDir string `env:"VERSIONS_DIR"`

	// MaxUploadBytes is the maximum allowed workbook size in bytes (default: 50MB)
	MaxUploadBytes int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`
}

// CalculationConfig holds the tunable constants of the calculation engine and
// the dataset loading policies.
type CalculationConfig struct {
	// TreeCO2KgPerYear is the CO2e a mature tree absorbs per year, in kg (default: 22)
	TreeCO2KgPerYear float64 `env:"TREE_CO2_KG_PER_YEAR" default:"22"`

	// DefaultLifetimeWeeks is used when an assessment omits its lifetime (default: 52)
	DefaultLifetimeWeeks int `env:"DEFAULT_LIFETIME_WEEKS" default:"52"`

	// DuplicatePolicy decides which row wins when a sheet repeats a name: last or first (default: last)
	DuplicatePolicy string `env:"DATASET_DUPLICATE_POLICY" default:"last"`

	// StrictLoad rejects a workbook outright when any row fails validation (default: false)
	StrictLoad bool `env:"DATASET_STRICT_LOAD" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
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
