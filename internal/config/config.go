package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the full process configuration, loaded from environment
// variables with development-friendly defaults.
type Config struct {
	Port        string
	Environment string

	DatabaseURL string // postgres DSN; sqlite is used when empty
	SQLitePath  string

	RedisAddr string // empty disables the room-event publisher

	PistonURL  string
	AIProvider string

	// DuplicateJoinPolicy decides what a second live connection for an
	// already-joined userId does: "allow" or "replace".
	DuplicateJoinPolicy string

	CleanupEnabled  bool
	CleanupSchedule string
	SessionTTL      time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8000"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLitePath:          getEnv("SQLITE_PATH", "data/codedojo.db"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		PistonURL:           os.Getenv("PISTON_URL"),
		AIProvider:          getEnv("AI_PROVIDER", "pollinations"),
		DuplicateJoinPolicy: getEnv("DUPLICATE_JOIN_POLICY", "allow"),
		CleanupEnabled:      getEnv("SESSION_CLEANUP_ENABLED", "true") == "true",
		CleanupSchedule:     getEnv("SESSION_CLEANUP_SCHEDULE", "0 3 * * *"),
		SessionTTL:          getEnvDuration("SESSION_TTL", 7*24*time.Hour),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.DuplicateJoinPolicy {
	case "allow", "replace":
	default:
		return fmt.Errorf("invalid DUPLICATE_JOIN_POLICY %q: must be allow or replace", cfg.DuplicateJoinPolicy)
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
