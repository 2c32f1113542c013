package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Settings holds all process-wide configuration. Values are sourced from
// environment variables once at startup and validated before the server
// accepts traffic.
type Settings struct {
	AppName     string `env:"APP_NAME" envDefault:"Open World API"`
	AppVersion  string `env:"APP_VERSION" envDefault:"1.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`

	Port     int    `env:"PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`

	// DatabaseURL is the connection string for the hosted store. When empty,
	// the server falls back to a local SQLite database at SQLitePath.
	DatabaseURL      string `env:"DATABASE_URL"`
	SQLitePath       string `env:"SQLITE_PATH"`
	SQLiteMigrations string `env:"SQLITE_MIGRATIONS" envDefault:"./migrations/sqlite"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	FirebaseAPIKey    string `env:"FIREBASE_API_KEY"`

	// Rate limiting thresholds. Declared for the deployment edge to consume;
	// nothing in this server enforces them.
	RateLimitRequests      int `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitWindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`

	TLSCertFile string `env:"API_TLS_CERT_FILE"`
	TLSKeyFile  string `env:"API_TLS_KEY_FILE"`
}

// Load parses Settings from the environment. A value that cannot be parsed
// into its field type is a startup error, not a warning.
func Load() (*Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	switch s.Environment {
	case "development", "staging", "production":
	default:
		return nil, fmt.Errorf("unknown environment %q", s.Environment)
	}
	for i, origin := range s.CORSOrigins {
		s.CORSOrigins[i] = strings.TrimSpace(origin)
	}
	return &s, nil
}

// IsProduction reports whether the server runs with production error masking.
func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

// StoreConfigured reports whether any backing store is configured. Used by
// the readiness endpoint, which checks configuration presence rather than
// probing the store.
func (s *Settings) StoreConfigured() bool {
	return s.DatabaseURL != "" || s.SQLitePath != ""
}
