// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	Backend BackendConfig
	Session SessionConfig
	Log     LogConfig
}

// BackendConfig describes how to reach the voice-agent backend
type BackendConfig struct {
	BaseURL           string        `env:"DENTSI_API_BASE" envDefault:"https://dentcognit.abacusai.app"`
	RequestTimeout    time.Duration `env:"DENTSI_REQUEST_TIMEOUT" envDefault:"10s"`
	DemoTimeout       time.Duration `env:"DENTSI_DEMO_TIMEOUT" envDefault:"30s"`
	CacheTTL          time.Duration `env:"DENTSI_CACHE_TTL" envDefault:"30s"`
	AppointmentsLimit int           `env:"DENTSI_APPOINTMENTS_LIMIT" envDefault:"50"`
	CallsLimit        int           `env:"DENTSI_CALLS_LIMIT" envDefault:"20"`
}

// SessionConfig holds the dashboard's cookie session settings
type SessionConfig struct {
	Lifetime     time.Duration `env:"SESSION_LIFETIME" envDefault:"12h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json or console
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the dashboard cannot run with
func (c Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("DENTSI_API_BASE must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("DENTSI_REQUEST_TIMEOUT must be positive, got %s", c.Backend.RequestTimeout)
	}
	if c.Backend.DemoTimeout <= 0 {
		return fmt.Errorf("DENTSI_DEMO_TIMEOUT must be positive, got %s", c.Backend.DemoTimeout)
	}
	if c.Backend.CacheTTL <= 0 {
		return fmt.Errorf("DENTSI_CACHE_TTL must be positive, got %s", c.Backend.CacheTTL)
	}
	if c.Backend.AppointmentsLimit <= 0 || c.Backend.CallsLimit <= 0 {
		return fmt.Errorf("list limits must be positive, got appointments=%d calls=%d",
			c.Backend.AppointmentsLimit, c.Backend.CallsLimit)
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("SESSION_LIFETIME must be positive, got %s", c.Session.Lifetime)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}
	return nil
}
