// Package config loads process configuration from environment variables.
//
// All knobs live in one struct built once in main and passed down by
// injection — nothing in the lower layers reads the environment directly.
// Parsing is done by caarlos0/env, which fills struct fields from the
// `env` tags and applies the `envDefault` values for anything unset.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the full server configuration.
type Config struct {
	Port         int           `env:"PORT" envDefault:"8080"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"data/quicknotes.db"`
	ClientURL    string        `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"JWT_EXPIRES_IN" envDefault:"720h"` // 30 days
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`
	Google       Google        `envPrefix:"GOOGLE_"`
}

// Google holds the OAuth client credentials registered in the Google
// Cloud console. CallbackURL must match the console entry exactly.
type Google struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

// Load parses the environment into a Config and validates the pieces
// the server cannot run without.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("config: JWT_EXPIRES_IN must be positive")
	}

	if cfg.Google.CallbackURL == "" {
		cfg.Google.CallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/google/callback", cfg.Port)
	}

	return &cfg, nil
}

// GoogleEnabled reports whether the Google sign-in routes should be
// registered. The server runs fine with local auth only.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}
