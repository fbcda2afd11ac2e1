package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds process configuration loaded from the environment.
type Config struct {
	Addr        string `env:"ACCESSFLOW_ADDR" envDefault:":8080"`
	PGDSN       string `env:"ACCESSFLOW_PG_DSN"`
	AuthSecret  string `env:"ACCESSFLOW_AUTH_SECRET"`
	FrontendURL string `env:"ACCESSFLOW_FRONTEND_URL" envDefault:"http://localhost:3000"`
	Brand       string `env:"ACCESSFLOW_BRAND" envDefault:"AccessFlow"`

	AMQPURL    string `env:"ACCESSFLOW_AMQP_URL" envDefault:"amqp://localhost"`
	EmailQueue string `env:"ACCESSFLOW_EMAIL_QUEUE" envDefault:"notifications"`

	SMTPHost     string `env:"ACCESSFLOW_SMTP_HOST"`
	SMTPPort     string `env:"ACCESSFLOW_SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"ACCESSFLOW_SMTP_USER"`
	SMTPPassword string `env:"ACCESSFLOW_SMTP_PASSWORD"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RequireSecret fails when the signing secret is absent. The API process
// cannot issue tokens without it; the notifier does not need it.
func (c Config) RequireSecret() error {
	if c.AuthSecret == "" {
		return errors.New("ACCESSFLOW_AUTH_SECRET is not configured")
	}
	return nil
}
