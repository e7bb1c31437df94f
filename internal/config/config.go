package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, parsed from the environment.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"wheek-fulfillment"`
	Env         string `env:"ENV" envDefault:"dev"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// Store selects the persistence backend: "mysql" or "memory".
	Store    string `env:"STORE" envDefault:"memory"`
	MySQLDSN string `env:"MYSQL_DSN"`

	RedisAddr string `env:"REDIS_ADDR"`

	Payment PaymentConfig `envPrefix:"PAYMENT_"`
}

// PaymentConfig holds the processor credentials and the settlement poll
// budget. Keys are injected here and passed to the gateway client at
// construction; they are never global state.
type PaymentConfig struct {
	BaseURL         string        `env:"BASE_URL"`
	PublicKey       string        `env:"PUBLIC_KEY"`
	PrivateKey      string        `env:"PRIVATE_KEY"`
	IntegritySecret string        `env:"INTEGRITY_SECRET"`
	Currency        string        `env:"CURRENCY" envDefault:"COP"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	PollMaxAttempts int           `env:"POLL_MAX_ATTEMPTS" envDefault:"30"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if cfg.Store == "mysql" && cfg.MySQLDSN == "" {
		return Config{}, fmt.Errorf("config: MYSQL_DSN is required when STORE=mysql")
	}
	return cfg, nil
}
