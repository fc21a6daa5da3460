package config

import (
	"os"
	"strconv"
	"time"

	"github.com/reweave/reweave/internal/thread"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string

	// Reconstruction defaults; per-group manifest entries may override them.
	TimeThreshold         time.Duration
	IDThreshold           int64
	MinParticipants       int
	MaxThreadMessages     int
	MaxThreadParticipants int
}

func Load() Config {
	return Config{
		Port:        envInt("REWEAVE_PORT", 8760),
		NatsURL:     envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		TimeThreshold:         envDuration("REWEAVE_TIME_THRESHOLD", 5*time.Minute),
		IDThreshold:           int64(envInt("REWEAVE_ID_THRESHOLD", 5)),
		MinParticipants:       envInt("REWEAVE_MIN_PARTICIPANTS", 2),
		MaxThreadMessages:     envInt("REWEAVE_MAX_THREAD_MESSAGES", 20),
		MaxThreadParticipants: envInt("REWEAVE_MAX_THREAD_PARTICIPANTS", 5),
	}
}

// Options returns the engine options this config describes.
func (c Config) Options() thread.Options {
	return thread.Options{
		TimeThreshold:         c.TimeThreshold,
		IDThreshold:           c.IDThreshold,
		MinParticipants:       c.MinParticipants,
		MaxThreadMessages:     c.MaxThreadMessages,
		MaxThreadParticipants: c.MaxThreadParticipants,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
