// Package config loads runtime settings from TADA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	BaseURL       string        `env:"TADA_HN_BASE_URL" envDefault:"https://hacker-news.firebaseio.com/v0"`
	PendingLimit  int           `env:"TADA_PENDING_LIMIT" envDefault:"25"`
	TodoDelay     time.Duration `env:"TADA_TODO_DELAY" envDefault:"1s"`
	Addr          string        `env:"TADA_ADDR" envDefault:":8080"`
	RenderTimeout time.Duration `env:"TADA_RENDER_TIMEOUT" envDefault:"10s"`
	HTTPTimeout   time.Duration `env:"TADA_HTTP_TIMEOUT" envDefault:"0s"`
	LogLevel      string        `env:"TADA_LOG_LEVEL" envDefault:"info"`
	LogFile       string        `env:"TADA_LOG_FILE"`
	Theme         string        `env:"TADA_THEME" envDefault:"classic"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("TADA_HN_BASE_URL is empty"))
	}
	if c.PendingLimit <= 0 {
		errs = append(errs, fmt.Errorf("TADA_PENDING_LIMIT must be positive, got %d", c.PendingLimit))
	}
	if c.TodoDelay < 0 {
		errs = append(errs, fmt.Errorf("TADA_TODO_DELAY must not be negative, got %s", c.TodoDelay))
	}
	if c.RenderTimeout < 0 {
		errs = append(errs, fmt.Errorf("TADA_RENDER_TIMEOUT must not be negative, got %s", c.RenderTimeout))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("TADA_HTTP_TIMEOUT must not be negative, got %s", c.HTTPTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
