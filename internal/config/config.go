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
	Database DatabaseConfig
	Ingest   IngestConfig
	Report   ReportConfig
	Notify   NotifyConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL selects the store by scheme: postgres:// or postgresql:// use pgx,
	// sqlite:// and file: use the embedded SQLite driver.
	URL string `env:"DATABASE_URL" envDefault:"sqlite://talentpitch_data_clean.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" envDefault:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// IngestConfig holds source file settings.
type IngestConfig struct {
	// DataDir holds one <entity>.csv file per entity (default: data)
	DataDir string `env:"DATA_DIR" envDefault:"data"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	Dir     string `env:"REPORT_DIR" envDefault:"."`
	Version string `env:"REPORT_VERSION" envDefault:"1.0"`

	// XLSX also writes a spreadsheet workbook next to the CSV and PDF files.
	XLSX bool `env:"REPORT_XLSX" envDefault:"true"`
}

// NotifyConfig holds SendGrid settings. Notification is disabled when APIKey is empty.
type NotifyConfig struct {
	APIKey     string   `env:"SENDGRID_API_KEY"`
	Sender     string   `env:"EMAIL_SENDER"`
	Receivers  []string `env:"EMAIL_RECEIVER" envSeparator:","`
	TemplateID string   `env:"TEMPLATE_ID"`
}

// Enabled reports whether notification emails should be sent.
func (c NotifyConfig) Enabled() bool {
	return c.APIKey != ""
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// RunTimeout bounds a single pipeline run (default: 10m)
	RunTimeout time.Duration `env:"RUN_TIMEOUT" envDefault:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
