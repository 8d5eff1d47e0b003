// Package config loads runtime settings from the environment.
//
// Each section is processed and validated on its own so an error names the
// section it came from. Defaults are chosen for local development: a SQLite
// file under data/ and a text logger. JWT_SECRET has no default.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	App       AppConfig
	RateLimit RateLimitConfig
	Presence  PresenceConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	BaseURL         string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("public base URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// Addr is the listen address for http.Server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type DatabaseConfig struct {
	Driver string `envconfig:"DB_DRIVER" default:"sqlite"` // sqlite or postgres
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string `envconfig:"DB_DSN" default:"data/vault.db"`
}

func (c *DatabaseConfig) Validate() error {
	switch strings.ToLower(c.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		return fmt.Errorf("invalid database driver: %s (must be one of: sqlite, postgres)", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	return nil
}

// IsSQLite reports whether DSN names a local database file.
func (c *DatabaseConfig) IsSQLite() bool {
	switch strings.ToLower(c.Driver) {
	case "sqlite", "sqlite3":
		return true
	}
	return false
}

type AuthConfig struct {
	JWTSecret          string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL             time.Duration `envconfig:"JWT_TTL" default:"24h"`
	BcryptCost         int           `envconfig:"BCRYPT_COST" default:"12"`
	GitHubClientID     string        `envconfig:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `envconfig:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `envconfig:"GITHUB_CALLBACK_URL"`
}

func (c *AuthConfig) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT secret must be at least 16 characters")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31, got %d", c.BcryptCost)
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		return fmt.Errorf("GitHub client ID and secret must be set together")
	}
	return nil
}

// GitHubEnabled reports whether the OAuth routes should be registered.
func (c *AuthConfig) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"` // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
}

func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// RateLimitConfig caps requests per client IP on the public share
// resolution and login endpoints.
type RateLimitConfig struct {
	RPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	Burst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`
}

func (c *RateLimitConfig) Validate() error {
	if c.RPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}
	if c.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}
	return nil
}

// PresenceConfig drives the background reaper for idle collaboration
// sessions. A zero interval disables it.
type PresenceConfig struct {
	ReapInterval time.Duration `envconfig:"PRESENCE_REAP_INTERVAL" default:"1m"`
	Retention    time.Duration `envconfig:"PRESENCE_RETENTION" default:"10m"`
}

func (c *PresenceConfig) Validate() error {
	if c.ReapInterval < 0 {
		return fmt.Errorf("presence reap interval must not be negative")
	}
	if c.ReapInterval > 0 && c.Retention < 30*time.Second {
		return fmt.Errorf("presence retention must be at least 30s, got %s", c.Retention)
	}
	return nil
}

// Load reads configuration from environment variables only. Loading a .env
// file is main's job.
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name   string
		target interface{ Validate() error }
	}{
		{"Server", &cfg.Server},
		{"Database", &cfg.Database},
		{"Auth", &cfg.Auth},
		{"App", &cfg.App},
		{"RateLimit", &cfg.RateLimit},
		{"Presence", &cfg.Presence},
	}
	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.target.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
