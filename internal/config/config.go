package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries every runtime setting. It is built once in main and
// handed to constructors; nothing reads the environment after Load.
type Config struct {
	// DBSource is the Postgres connection string. Empty selects the
	// in-memory store, which loses all history on restart.
	DBSource string
	Port     string
	Env      string

	DailyLimit          int
	DefaultHistoryLines int
	MaxHistoryLines     int
	LeaderboardLimit    int

	UnitName       string
	UnitNamePlural string

	// AnnounceChannel names where the caller should announce gives.
	// The ledger itself never posts anywhere; this is pass-through
	// configuration for the command layer.
	AnnounceChannel string
}

func Load() (*Config, error) {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		DBSource:            os.Getenv("DB_SOURCE"),
		Port:                envOr("SERVER_PORT", "8080"),
		Env:                 envOr("ENVIRONMENT", "development"),
		DefaultHistoryLines: 10,
		MaxHistoryLines:     50,
		UnitName:            envOr("UNIT_NAME", "taco"),
		UnitNamePlural:      envOr("UNIT_NAME_PLURAL", "tacos"),
		AnnounceChannel:     os.Getenv("ANNOUNCE_CHANNEL"),
	}

	var err error
	if cfg.DailyLimit, err = envIntOr("DAILY_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.DailyLimit < 1 {
		return nil, fmt.Errorf("DAILY_LIMIT must be a positive integer, got %d", cfg.DailyLimit)
	}
	if cfg.LeaderboardLimit, err = envIntOr("LEADERBOARD_LIMIT", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
