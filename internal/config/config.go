package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Search struct {
		Patience      int           `env:"SEARCH_PATIENCE" envDefault:"25"`
		DecayRate     float64       `env:"SEARCH_DECAY_RATE" envDefault:"95"`
		MaxIterations int           `env:"SEARCH_MAX_ITERATIONS" envDefault:"1000"`
		PaceInterval  time.Duration `env:"SEARCH_PACE_INTERVAL" envDefault:"50ms"`
		MaxRuns       int           `env:"SEARCH_MAX_RUNS" envDefault:"64"`
		RunTTL        time.Duration `env:"SEARCH_RUN_TTL" envDefault:"1h"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.SearchDefaults().Validate(); err != nil {
		return nil, fmt.Errorf("invalid search defaults: %w", err)
	}
	if cfg.Search.MaxRuns <= 0 {
		return nil, fmt.Errorf("SEARCH_MAX_RUNS must be > 0, got %d", cfg.Search.MaxRuns)
	}

	return cfg, nil
}

// SearchDefaults returns the run configuration used when a request omits fields.
func (c *Config) SearchDefaults() optimization.Config {
	return optimization.Config{
		Patience:      c.Search.Patience,
		DecayRate:     c.Search.DecayRate,
		MaxIterations: c.Search.MaxIterations,
	}
}

// GetEnv returns the value of the environment variable or the default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt returns the value of the environment variable as int or the default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
