package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProgressBackendMemory = "memory"
	ProgressBackendRedis  = "redis"
	ProgressBackendSQLite = "sqlite"

	SelectionSequential = "sequential"
	SelectionDaily      = "daily"
)

type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	Env          string `env:"APP_ENV" envDefault:"development"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"*"`

	// An empty RedisURL keeps puzzles in process memory.
	RedisURL  string `env:"REDIS_URL"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	PuzzleTTL       time.Duration `env:"PUZZLE_TTL" envDefault:"10m"`
	SolutionLength  int           `env:"SOLUTION_LENGTH" envDefault:"6"`
	PuzzlePoolFile  string        `env:"PUZZLE_POOL_FILE"`
	PuzzleSelection string        `env:"PUZZLE_SELECTION" envDefault:"sequential"`
	SubmitRateLimit int           `env:"SUBMIT_RATE_LIMIT" envDefault:"60"`

	ProgressBackend string `env:"PROGRESS_BACKEND" envDefault:"memory"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"mathler.db"`

	MintRelayURL   string        `env:"MINT_RELAY_URL"`
	MintRelayToken string        `env:"MINT_RELAY_TOKEN"`
	MintTimeout    time.Duration `env:"MINT_TIMEOUT" envDefault:"90s"`

	PriceFeedURL string `env:"PRICE_FEED_URL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.ProgressBackend = strings.ToLower(strings.TrimSpace(cfg.ProgressBackend))
	cfg.PuzzleSelection = strings.ToLower(strings.TrimSpace(cfg.PuzzleSelection))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Validate() error {
	if c.SolutionLength < 3 {
		return fmt.Errorf("SOLUTION_LENGTH must be at least 3, got %d", c.SolutionLength)
	}
	if c.PuzzleTTL <= 0 {
		return fmt.Errorf("PUZZLE_TTL must be positive")
	}

	switch c.PuzzleSelection {
	case SelectionSequential, SelectionDaily:
	default:
		return fmt.Errorf("unknown PUZZLE_SELECTION %q", c.PuzzleSelection)
	}

	switch c.ProgressBackend {
	case ProgressBackendMemory:
	case ProgressBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("PROGRESS_BACKEND=redis requires REDIS_URL")
		}
	case ProgressBackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("PROGRESS_BACKEND=sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown PROGRESS_BACKEND %q", c.ProgressBackend)
	}

	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	return nil
}
