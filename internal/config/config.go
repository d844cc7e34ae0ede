// Package config loads the server configuration from the environment.
//
// An optional .env file in the working directory is read first; variables
// already present in the environment win over it.
//
// Environment Variables:
//
// Server:
//   - PORT: HTTP port (default: 8080)
//   - REALM: authentication realm advertised to CalDAV clients (default: caldora)
//   - CORS_ORIGINS: comma separated allowed origins (default: *)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_FORMAT: text or json (default: text)
//
// Database:
//   - DATABASE_TYPE: sqlite, postgres or memory (default: sqlite)
//   - DATABASE_PATH: SQLite file path (default: ./data/caldora.db)
//   - DATABASE_URL: PostgreSQL connection string (required for postgres)
//   - STORE_TIMEOUT: bound on every store operation (default: 5s)
//
// Concurrency:
//   - CONCURRENCY_MODE: strict or permissive (default: strict)
//   - REDIS_ENABLED: take resource locks in redis (default: false)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: redis connection
//   - LOCK_TTL: expiry of a redis lock (default: 10s)
//
// Security:
//   - JWT_SECRET: token signing secret (required, minimum 32 characters)
//   - TOKEN_TTL: token lifetime (default: 24h)
//
// Maintenance:
//   - TOMBSTONE_RETENTION: how long deleted event paths stay retired (default: 720h)
//   - PURGE_SCHEDULE: cron spec of the tombstone purge (default: @hourly)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/caldora/internal/guard"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration values.
type Config struct {
	Port        string
	Realm       string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	DatabaseType string
	DatabasePath string
	DatabaseURL  string
	StoreTimeout time.Duration

	ConcurrencyMode string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	TombstoneRetention time.Duration
	PurgeSchedule      string

	// problems collects values that could not be parsed; Validate reports them.
	problems []error
}

// Load reads .env (if present) and the environment. Call Validate on the
// result before use.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		Port:            getEnv("PORT", "8080"),
		Realm:           getEnv("REALM", "caldora"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		DatabaseType:    strings.ToLower(getEnv("DATABASE_TYPE", "sqlite")),
		DatabasePath:    getEnv("DATABASE_PATH", "./data/caldora.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		ConcurrencyMode: strings.ToLower(getEnv("CONCURRENCY_MODE", "strict")),
		RedisEnabled:    getBoolEnv("REDIS_ENABLED", false),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		PurgeSchedule:   getEnv("PURGE_SCHEDULE", "@hourly"),
	}
	c.StoreTimeout = c.getDurationEnv("STORE_TIMEOUT", 5*time.Second)
	c.LockTTL = c.getDurationEnv("LOCK_TTL", 10*time.Second)
	c.TokenTTL = c.getDurationEnv("TOKEN_TTL", 24*time.Hour)
	c.TombstoneRetention = c.getDurationEnv("TOMBSTONE_RETENTION", 720*time.Hour)
	c.RedisDB = c.getIntEnv("REDIS_DB", 0)
	return c
}

// Mode returns the parsed concurrency mode.
func (c *Config) Mode() guard.Mode {
	mode, _ := guard.ParseMode(c.ConcurrencyMode)
	return mode
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if len(c.problems) > 0 {
		return errors.Join(c.problems...)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.DatabaseType {
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when using SQLite")
		}
	case "postgres", "postgresql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when using PostgreSQL")
		}
	case "memory":
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite', 'postgres' or 'memory'")
	}

	if _, err := guard.ParseMode(c.ConcurrencyMode); err != nil {
		return fmt.Errorf("CONCURRENCY_MODE must be 'strict' or 'permissive'")
	}

	for name, d := range map[string]time.Duration{
		"STORE_TIMEOUT":       c.StoreTimeout,
		"LOCK_TTL":            c.LockTTL,
		"TOKEN_TTL":           c.TokenTTL,
		"TOMBSTONE_RETENTION": c.TombstoneRetention,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}

	if c.RedisEnabled {
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED is set")
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	if _, err := cron.ParseStandard(c.PurgeSchedule); err != nil {
		return fmt.Errorf("PURGE_SCHEDULE is not a valid cron spec: %w", err)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json'")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Errorf("%s must be a valid duration (e.g. '5s', '24h'): %w", key, err))
		return defaultValue
	}
	return d
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Errorf("%s must be a number: %w", key, err))
		return defaultValue
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
