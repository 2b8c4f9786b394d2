package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the bot settings read from the environment
type Config struct {
	BotToken    string `env:"BOT_TOKEN"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`
	RedisURL    string `env:"REDIS_URL"`
	Port        string `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Decks          int           `env:"BLACKJACK_DECKS" envDefault:"6"`
	Timeout        time.Duration `env:"BLACKJACK_TIMEOUT" envDefault:"5m"`
	ConfirmTimeout time.Duration `env:"BLACKJACK_CONFIRM_TIMEOUT" envDefault:"1m"`
	StartingChips  int64         `env:"STARTING_CHIPS" envDefault:"1000"`
}

// LoadConfig reads a .env file when present, then parses the environment
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Decks <= 0 {
		return Config{}, fmt.Errorf("BLACKJACK_DECKS must be positive, got %d", cfg.Decks)
	}
	if cfg.StartingChips < 0 {
		return Config{}, fmt.Errorf("STARTING_CHIPS must not be negative, got %d", cfg.StartingChips)
	}
	return cfg, nil
}
