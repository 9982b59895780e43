package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errs = append(errs, fmt.Sprintf("DATABASE_URL is not a valid URL: %v", err))
	} else if !supportedScheme(c.Database.URL) {
		errs = append(errs, "DATABASE_URL must start with postgres://, postgresql://, sqlite:// or file:")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	if strings.TrimSpace(c.Ingest.DataDir) == "" {
		errs = append(errs, "DATA_DIR must not be empty")
	}
	if strings.TrimSpace(c.Report.Dir) == "" {
		errs = append(errs, "REPORT_DIR must not be empty")
	}

	// Notification is optional, but once a key is set the rest must follow.
	if c.Notify.Enabled() {
		if _, err := mail.ParseAddress(c.Notify.Sender); err != nil {
			errs = append(errs, fmt.Sprintf("EMAIL_SENDER (%q) must be a valid address", c.Notify.Sender))
		}
		if len(c.Notify.Receivers) == 0 {
			errs = append(errs, "EMAIL_RECEIVER is required when SENDGRID_API_KEY is set")
		}
		for _, r := range c.Notify.Receivers {
			if _, err := mail.ParseAddress(strings.TrimSpace(r)); err != nil {
				errs = append(errs, fmt.Sprintf("EMAIL_RECEIVER entry %q is not a valid address", r))
			}
		}
		if c.Notify.TemplateID == "" {
			errs = append(errs, "TEMPLATE_ID is required when SENDGRID_API_KEY is set")
		}
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RunTimeout <= 0 {
		errs = append(errs, "RUN_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func supportedScheme(raw string) bool {
	for _, prefix := range []string{"postgres://", "postgresql://", "sqlite://", "file:"} {
		if strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Ingest: {DataDir: %q}, ", c.Ingest.DataDir))
	b.WriteString(fmt.Sprintf("Report: {Dir: %q, Version: %q, XLSX: %v}, ",
		c.Report.Dir, c.Report.Version, c.Report.XLSX))
	if c.Notify.Enabled() {
		b.WriteString(fmt.Sprintf("Notify: {APIKey: [MASKED], Sender: %q, Receivers: %d}, ",
			c.Notify.Sender, len(c.Notify.Receivers)))
	} else {
		b.WriteString("Notify: {disabled}, ")
	}
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
