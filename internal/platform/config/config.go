// Copyright (c) 2026 IP Platform. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: once loaded, configuration is read-only.
  - DI-Friendly: passed to core components (DB, Redis, mailer) via constructors.
  - Zero Hidden State: no global variables are used to store config.

This keeps the application Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the IP Platform API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis) — patent search result cache
	RedisURL string `env:"REDIS_URL,required"`

	// Cryptographic keys for identity signing. Swapping key material is a
	// deploy-time change only; no code references the concrete keys.
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Refresh session lifetimes, in days
	RefreshTokenDays  int `env:"AUTH_REFRESH_TOKEN_DAYS"   envDefault:"7"`
	RememberMeDays    int `env:"AUTH_REMEMBER_ME_DAYS"     envDefault:"30"`
	PasswordResetMins int `env:"AUTH_RESET_TOKEN_MINUTES"  envDefault:"60"`

	// Seeded administrator account (admins cannot self-register)
	SeedAdminUsername string `env:"SEED_ADMIN_USERNAME" envDefault:"admin"`
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"    envDefault:"admin@ipplatform.com"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`

	// Google sign-in
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	// Outbound email (SMTP). Optional: when host is empty the mailer is a
	// logging no-op, which keeps local development free of SMTP setup.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"      envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"      envDefault:"noreply@ipplatform.com"`

	// FrontendURL is used to build links embedded in emails (password reset).
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// External patent search provider
	PatentAPIBaseURL string `env:"PATENT_API_BASE_URL" envDefault:"https://api.lens.org"`
	PatentAPIKey     string `env:"PATENT_API_KEY"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	// Mapping fails if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigin reports whether the given browser origin may call the API.
// Any subdomain of ipplatform.com is accepted, plus origins listed in
// EXTRA_ORIGINS (comma-separated).
func (c *Config) AllowedOrigin(origin string) bool {
	if strings.HasSuffix(origin, "ipplatform.com") {
		return true
	}
	for _, extra := range strings.Split(c.ExtraOrigins, ",") {
		if extra != "" && strings.TrimSpace(extra) == origin {
			return true
		}
	}
	return false
}
