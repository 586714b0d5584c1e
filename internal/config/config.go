// Package config loads DreamWays settings from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file. Variables already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// DatabaseURL selects the Postgres store; without it DBPath is used.
	DBPath      string `env:"DB_PATH" envDefault:"data/dreamways.db" validate:"required_without=DatabaseURL"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret     string        `env:"JWT_SECRET" validate:"required,min=16"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h" validate:"gt=0"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`

	OpenAIAPIKey        string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	CompletionModel     string        `env:"COMPLETION_MODEL" envDefault:"gpt-4o-mini" validate:"required"`
	CompletionMaxTokens int64         `env:"COMPLETION_MAX_TOKENS" envDefault:"5000" validate:"min=1"`
	CompletionTimeout   time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s" validate:"gt=0"`
	PlanCacheTTL        time.Duration `env:"PLAN_CACHE_TTL" envDefault:"0s" validate:"gte=0"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," validate:"dive,url"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET" validate:"required_with=GitHubClientID"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL" validate:"omitempty,url"`
}

// Load reads the configuration. envFiles are .env files to seed the
// environment from (default ".env"); a missing file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if cfg.GitHubClientID != "" && cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// CompletionEnabled reports whether an API key for trip generation is set.
func (c *Config) CompletionEnabled() bool {
	return c.OpenAIAPIKey != ""
}
