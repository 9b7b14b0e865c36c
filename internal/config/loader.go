package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends understood by the service.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort        int
	Storage         string
	SQLitePath      string
	LogLevel        string
	LockWait        time.Duration
	PublishTimeout  time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LockTTL         time.Duration
	AMQPURL         string
	AMQPQueue       string
	APITokens       string
	RequireAuth     bool
	ShutdownTimeout time.Duration
}

// LoadEnvFile loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. An empty path falls back
// to SCHEDULER_ENV_FILE and then ".env". A missing default file is ignored.
func LoadEnvFile(path string) error {
	explicit := true
	if path == "" {
		path = strings.TrimSpace(os.Getenv("SCHEDULER_ENV_FILE"))
	}
	if path == "" {
		path = ".env"
		explicit = false
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields and reports every missing
// or invalid entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		Storage:         StorageSQLite,
		SQLitePath:      "scheduler.db",
		LogLevel:        "info",
		LockWait:        5 * time.Second,
		PublishTimeout:  5 * time.Second,
		LockTTL:         10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("SCHEDULER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if storage := strings.ToLower(env("SCHEDULER_STORAGE")); storage != "" {
		switch storage {
		case StorageSQLite, StorageMemory:
			cfg.Storage = storage
		default:
			invalid = append(invalid, "SCHEDULER_STORAGE")
		}
	}

	if path := env("SCHEDULER_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	if level := env("SCHEDULER_LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if !parsePositiveDuration("SCHEDULER_LOCK_WAIT", &cfg.LockWait) {
		invalid = append(invalid, "SCHEDULER_LOCK_WAIT")
	}
	if !parsePositiveDuration("SCHEDULER_PUBLISH_TIMEOUT", &cfg.PublishTimeout) {
		invalid = append(invalid, "SCHEDULER_PUBLISH_TIMEOUT")
	}
	if !parsePositiveDuration("SCHEDULER_LOCK_TTL", &cfg.LockTTL) {
		invalid = append(invalid, "SCHEDULER_LOCK_TTL")
	}
	if !parsePositiveDuration("SCHEDULER_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout) {
		invalid = append(invalid, "SCHEDULER_SHUTDOWN_TIMEOUT")
	}

	cfg.RedisAddr = env("SCHEDULER_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("SCHEDULER_REDIS_PASSWORD")
	if dbValue := env("SCHEDULER_REDIS_DB"); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "SCHEDULER_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	cfg.AMQPURL = env("SCHEDULER_AMQP_URL")
	cfg.AMQPQueue = env("SCHEDULER_AMQP_QUEUE")

	cfg.APITokens = env("SCHEDULER_API_TOKENS")
	if requireValue := env("SCHEDULER_REQUIRE_AUTH"); requireValue != "" {
		require, err := strconv.ParseBool(requireValue)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_REQUIRE_AUTH")
		} else {
			cfg.RequireAuth = require
		}
	}
	if cfg.RequireAuth && cfg.APITokens == "" {
		missing = append(missing, "SCHEDULER_API_TOKENS")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parsePositiveDuration(key string, target *time.Duration) bool {
	value := env(key)
	if value == "" {
		return true
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return false
	}
	*target = d
	return true
}
