package api

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultRateLimitMax    = 100
	defaultRateLimitWindow = 15 * time.Minute
)

// Config controls runtime behaviour for the API service.
type Config struct {
	Addr            string
	DatabaseURL     string
	NATSURL         string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// LoadConfig reads service configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.Addr = ":" + getEnv("PORT", "3000")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	cfg.NATSURL = os.Getenv("NATS_URL")

	max, err := getEnvInt("RATE_LIMIT_MAX", defaultRateLimitMax)
	if err != nil {
		return Config{}, err
	}
	if max <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	cfg.RateLimitMax = max

	window, err := getEnvDuration("RATE_LIMIT_WINDOW", defaultRateLimitWindow)
	if err != nil {
		return Config{}, err
	}
	if window <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	cfg.RateLimitWindow = window

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
