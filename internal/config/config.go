// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the API service.
type Config struct {
	Port              string        `env:"PORT" envDefault:"3003"`
	DatabaseURL       string        `env:"DATABASE_URL,required"`
	SimulatorURL      string        `env:"SIMULATOR_URL" envDefault:"http://localhost:3000"`
	SkipGarageImport  bool          `env:"SKIP_GARAGE_IMPORT" envDefault:"false"`
	CORSAllowed       []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() (Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
