// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port   int    `env:"PORT" env-default:"8080"`
	DBPath string `env:"DB_PATH" env-default:"backoffice.db"`

	// StockLockWait bounds how long a contended stock mutation waits
	// before failing as retryable.
	StockLockWait time.Duration `env:"STOCK_LOCK_WAIT" env-default:"2s"`

	CORSOrigins []string `env:"CORS_ORIGINS" env-default:"http://localhost:5173,http://localhost:8080"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Load reads configuration from the environment, falling back to defaults.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}
