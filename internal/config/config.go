package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vytor/mathtermind/internal/logger"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Addr                string
	DBPath              string
	LogLevel            string
	LogFile             string
	LogMaxSizeMB        int
	LogMaxBackups       int
	CacheBackend        string
	CacheTTL            time.Duration
	CacheMaxEntries     int
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	OutboxMaxAttempts   int
	OutboxSweepInterval time.Duration
	AchievementCatalog  string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		DBPath:              envOr("DB_PATH", "file:mathtermind.db"),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		LogFile:             os.Getenv("LOG_FILE"),
		LogMaxSizeMB:        envIntOr("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:       envIntOr("LOG_MAX_BACKUPS", 3),
		CacheBackend:        strings.ToLower(envOr("CACHE_BACKEND", CacheBackendMemory)),
		CacheTTL:            envDurationOr("CACHE_TTL", 5*time.Minute),
		CacheMaxEntries:     envIntOr("CACHE_MAX_ENTRIES", 100),
		RedisAddr:           envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             envIntOr("REDIS_DB", 0),
		OutboxMaxAttempts:   envIntOr("OUTBOX_MAX_ATTEMPTS", 5),
		OutboxSweepInterval: envDurationOr("OUTBOX_SWEEP_INTERVAL", 30*time.Second),
		AchievementCatalog:  os.Getenv("ACHIEVEMENT_CATALOG"),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	if _, ok := logger.LookupLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel))
	}
	if c.LogFile != "" {
		if c.LogMaxSizeMB <= 0 {
			errs = append(errs, fmt.Errorf("LOG_MAX_SIZE_MB must be positive, got %d", c.LogMaxSizeMB))
		}
		if c.LogMaxBackups < 0 {
			errs = append(errs, fmt.Errorf("LOG_MAX_BACKUPS cannot be negative, got %d", c.LogMaxBackups))
		}
	}

	switch c.CacheBackend {
	case CacheBackendMemory:
		if c.CacheMaxEntries <= 0 {
			errs = append(errs, fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", c.CacheMaxEntries))
		}
	case CacheBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR cannot be empty when CACHE_BACKEND=redis"))
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			errs = append(errs, fmt.Errorf("REDIS_DB must be between 0 and 15, got %d", c.RedisDB))
		}
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.CacheBackend))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}

	if c.OutboxMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive, got %d", c.OutboxMaxAttempts))
	}
	if c.OutboxSweepInterval < 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_SWEEP_INTERVAL cannot be negative, got %s", c.OutboxSweepInterval))
	}
	if c.AchievementCatalog != "" {
		if _, err := os.Stat(c.AchievementCatalog); err != nil {
			errs = append(errs, fmt.Errorf("ACHIEVEMENT_CATALOG not readable: %w", err))
		}
	}

	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	}
	return def
}
