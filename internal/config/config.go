package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/ayushnagarcodes/natours/pkg/config"
	"github.com/ayushnagarcodes/natours/pkg/database"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the accounts service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// BaseURL is the externally visible origin used to build links in
	// outgoing email, e.g. the password reset URL.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"natours"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"natours_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"natours"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTExpiry string `env:"JWT_EXPIRY" envDefault:"24h"`

	// Passwords
	BcryptCost          int    `env:"BCRYPT_COST" envDefault:"12"`
	PasswordResetWindow string `env:"PASSWORD_RESET_WINDOW" envDefault:"10m"`

	// Email
	MailProvider   string `env:"MAIL_PROVIDER" envDefault:"log"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	EmailFrom      string `env:"EMAIL_FROM" envDefault:"hello@natours.dev"`
	EmailFromName  string `env:"EMAIL_FROM_NAME" envDefault:"Natours"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load accounts config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if _, err := time.ParseDuration(cfg.JWTExpiry); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY %q: %w", cfg.JWTExpiry, err)
	}
	if _, err := time.ParseDuration(cfg.PasswordResetWindow); err != nil {
		return nil, fmt.Errorf("invalid PASSWORD_RESET_WINDOW %q: %w", cfg.PasswordResetWindow, err)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
		if cfg.MailProvider == "sendgrid" && cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY must be set when MAIL_PROVIDER is sendgrid in %q mode", cfg.Environment)
		}
	}

	switch cfg.MailProvider {
	case "log", "sendgrid":
	default:
		return nil, fmt.Errorf("unknown MAIL_PROVIDER %q", cfg.MailProvider)
	}

	return cfg, nil
}

// JWTLifetime returns the parsed session token lifetime.
func (c *Config) JWTLifetime() time.Duration {
	d, _ := time.ParseDuration(c.JWTExpiry)
	return d
}

// ResetWindow returns the parsed password reset validity window.
func (c *Config) ResetWindow() time.Duration {
	d, _ := time.ParseDuration(c.PasswordResetWindow)
	return d
}

// Postgres returns the pool configuration for the service database.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}
