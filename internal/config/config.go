package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the service reads from the environment.
// It is parsed once in main and passed down explicitly.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	PresenceBaseURL string `env:"PRESENCE_SERVICE_URL"`
	PresenceWSURL   string `env:"PRESENCE_WS_URL"`
	PresenceSecret  string `env:"PRESENCE_SHARED_SECRET"`

	TokenSecret string `env:"TOKEN_SECRET"`
	DBDSN       string `env:"DB_DSN"`

	AMQPURL      string `env:"AMQP_URL"`
	LogsExchange string `env:"LOGS_EXCHANGE" envDefault:"logs.events"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"presence-gateway"`
	Environment  string `env:"ENVIRONMENT" envDefault:"local"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
