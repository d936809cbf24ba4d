package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Business constants for the qualification exam and the casual quiz.
const (
	ExamQuestionCount      = 20
	ExamTokenTTL           = 15 * time.Minute
	PassingScorePercentage = 60.0

	QuizSingleCount     = 6
	QuizMultipleCount   = 4
	QuizPointsPerHit    = 10
	LeaderboardSize     = 5
	LeaderboardCacheTTL = time.Minute
)

type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	JWTSecret     string
	JWTExpiration time.Duration
	RedisAddr     string
	AdminUsername string
	AdminPassword string
	LogLevel      string
}

// Load reads configuration from the environment. DATABASE_URL and
// JWT_SECRET have no usable defaults and are validated here rather than
// at first use.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":3000"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTExpiration: getenvDuration("JWT_EXPIRATION", time.Hour),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET must be set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getenvDuration accepts either a bare number of seconds (JWT_EXPIRATION=3600)
// or a Go duration string (JWT_EXPIRATION=1h).
func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
