// Package config validates environment configuration for the server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration.
type Config struct {
	Port     string
	Password string

	RoomLimit       int
	LobbyLifetime   time.Duration
	GameLifetime    time.Duration
	UserTimeout     time.Duration
	CleanerInterval time.Duration

	RateLimitAPI   string
	AllowedOrigins string

	GoEnv             string
	TracingEnabled    bool
	OTelCollectorAddr string
}

// Development reports whether the server runs in development mode.
func (c *Config) Development() bool {
	return c.GoEnv != "production"
}

// ValidateEnv reads all environment variables and returns a Config object.
// Returns an error listing every invalid variable.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// PORT (default 7468)
	cfg.Port = getEnvOrDefault("PORT", "7468")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// PASSWORD (empty disables bearer auth)
	cfg.Password = os.Getenv("PASSWORD")

	cfg.RoomLimit = parseIntVar(&errors, "ROOM_LIMIT", 100, 1)
	cfg.LobbyLifetime = time.Duration(parseIntVar(&errors, "LOBBY_LIFETIME", 10, 1)) * time.Minute
	cfg.GameLifetime = time.Duration(parseIntVar(&errors, "GAME_LIFETIME", 20, 1)) * time.Minute
	cfg.UserTimeout = time.Duration(parseIntVar(&errors, "USER_TIMEOUT", 10, 1)) * time.Second
	cfg.CleanerInterval = time.Duration(parseIntVar(&errors, "CLEANER_INTERVAL", 3, 1)) * time.Second

	// Rate limit in ulule/limiter formatted notation (count-period)
	cfg.RateLimitAPI = getEnvOrDefault("RATE_LIMIT_API", "600-M")

	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")

	cfg.TracingEnabled = os.Getenv("TRACING_ENABLED") == "true"
	if cfg.TracingEnabled {
		cfg.OTelCollectorAddr = getEnvOrDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// parseIntVar reads an integer environment variable with a default and a
// lower bound, appending to errs on failure.
func parseIntVar(errs *[]string, key string, defaultValue, min int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer >= %d (got '%s')", key, min, raw))
		return defaultValue
	}
	return value
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// logValidatedConfig logs the validated configuration with the password redacted
func logValidatedConfig(cfg *Config) {
	slog.Info("Environment configuration validated",
		"port", cfg.Port,
		"auth_enabled", cfg.Password != "",
		"room_limit", cfg.RoomLimit,
		"lobby_lifetime", cfg.LobbyLifetime.String(),
		"game_lifetime", cfg.GameLifetime.String(),
		"user_timeout", cfg.UserTimeout.String(),
		"cleaner_interval", cfg.CleanerInterval.String(),
		"rate_limit_api", cfg.RateLimitAPI,
		"go_env", cfg.GoEnv,
		"tracing_enabled", cfg.TracingEnabled,
	)
}
