// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreDriverPostgres  = "postgres"
	StoreDriverPostgREST = "postgrest"
	StoreDriverBolt      = "bolt"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// RSVP store: postgres, postgrest or bolt
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// Hosted PostgREST endpoint (Supabase)
	SupabaseURL     string `env:"SUPABASE_URL"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"`

	// Embedded store file
	BoltPath string `env:"BOLT_PATH" envDefault:"rsvps.db"`

	// Cache (Redis). Optional: enables the lookup cache and RSVP event stream.
	RedisURL       string        `env:"REDIS_URL"`
	LookupCacheTTL time.Duration `env:"LOOKUP_CACHE_TTL" envDefault:"10m"`

	// Front-end revalidation hook
	RevalidateURL    string `env:"REVALIDATE_URL"`
	RevalidateSecret string `env:"REVALIDATE_SECRET"`

	// Confirmation email
	MailProvider       string `env:"MAIL_PROVIDER" envDefault:"noop"`
	MailFromAddress    string `env:"MAIL_FROM_ADDRESS"`
	MailFromName       string `env:"MAIL_FROM_NAME" envDefault:"Eventide RSVP"`
	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 64KB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CacheEnabled returns true if a Redis URL is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// RevalidateEnabled returns true if the revalidation hook is configured.
func (c *Config) RevalidateEnabled() bool {
	return c.RevalidateURL != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks settings whose requirements depend on other settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverPostgREST:
		if c.SupabaseURL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required for the postgrest store"))
		}
		if c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_ANON_KEY is required for the postgrest store"))
		}
	case StoreDriverBolt:
		if c.BoltPath == "" {
			errs = append(errs, errors.New("BOLT_PATH is required for the bolt store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.RevalidateURL != "" && c.RevalidateSecret == "" {
		errs = append(errs, errors.New("REVALIDATE_SECRET is required when REVALIDATE_URL is set"))
	}

	if c.MailProvider == "ses" && c.MailFromAddress == "" {
		errs = append(errs, errors.New("MAIL_FROM_ADDRESS is required for the ses mail provider"))
	}

	if c.LookupCacheTTL <= 0 {
		errs = append(errs, errors.New("LOOKUP_CACHE_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
// Outside production a .env file in the working directory is loaded first;
// variables already present in the environment take precedence.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn(".env file could not be loaded", "error", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
