package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is everything the process needs from its environment. A missing
// DATABASE_URL selects the in-memory store; a missing REDIS_ADDR selects the
// in-process change feed. Both are fine for a single-node run.
type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	WordsCSV    string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config.Load] Skipping .env: %v", err)
	}

	return Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:     envInt("REDIS_DB", 0),
		WordsCSV:    os.Getenv("WORDS_CSV"),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[config.Load] Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}
