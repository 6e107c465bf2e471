package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration. Values come from the environment and
// may be overridden by command-line flags.
type Config struct {
	DBPath    string `envconfig:"IZPOSOJA_DB" default:"izposoja.sqlite3"`
	Addr      string `envconfig:"IZPOSOJA_ADDR" default:":8080"`
	AdminUser string `envconfig:"IZPOSOJA_ADMIN_USER" default:"Admin"`
	LogPath   string `envconfig:"IZPOSOJA_LOG"`

	ShutdownTimeout time.Duration `envconfig:"IZPOSOJA_SHUTDOWN_TIMEOUT" default:"5s"`

	// Notices to borrowers are sent only when SMTPHost is set.
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"izposoja@localhost"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Addr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("invalid SMTP port %d", c.SMTPPort)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// MailEnabled reports whether an SMTP server is configured.
func (c *Config) MailEnabled() bool {
	return c != nil && c.SMTPHost != ""
}

// SMTPAddr returns host:port of the SMTP server.
func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}
