/*
config.go - Server configuration

PURPOSE:
  Collects the server's settings from, in increasing priority:
  1. Built-in defaults
  2. A .env file in the working directory (optional)
  3. Environment variables
  4. Command-line flags

SETTINGS:
  Flag          Environment           Default
  -port         PORT                  8080
  -db           DATABASE_PATH         feasibility.db (":memory:" for in-memory)
  -log-level    LOG_LEVEL             info
  -workers      SENSITIVITY_WORKERS   0 (GOMAXPROCS)
  -job-runners  JOB_RUNNERS           2
  -cache-ttl    CACHE_TTL             10m (0 disables the sensitivity cache)
  -cors         CORS_ORIGINS          http://localhost:5173,http://localhost:8080

SEE ALSO:
  - cmd/server/main.go: Calls Load
  - logging/logging.go: Consumes LogLevel
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server's settings.
type Config struct {
	Port               int
	DatabasePath       string
	LogLevel           string
	SensitivityWorkers int
	JobRunners         int
	CacheTTL           time.Duration
	CORSOrigins        []string
}

// Load reads .env, the environment and then args (without the program name).
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{
		Port:               getEnvInt("PORT", 8080),
		DatabasePath:       getEnv("DATABASE_PATH", "feasibility.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SensitivityWorkers: getEnvInt("SENSITIVITY_WORKERS", 0),
		JobRunners:         getEnvInt("JOB_RUNNERS", 2),
		CacheTTL:           getEnvDuration("CACHE_TTL", 10*time.Minute),
	}
	origins := getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")

	fsFlags := flag.NewFlagSet("server", flag.ContinueOnError)
	fsFlags.SetOutput(io.Discard)
	fsFlags.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fsFlags.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database path")
	fsFlags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fsFlags.IntVar(&cfg.SensitivityWorkers, "workers", cfg.SensitivityWorkers, "parallel simulations per sensitivity grid (0 = GOMAXPROCS)")
	fsFlags.IntVar(&cfg.JobRunners, "job-runners", cfg.JobRunners, "background sensitivity job runners")
	fsFlags.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "sensitivity cache TTL (0 disables)")
	fsFlags.StringVar(&origins, "cors", origins, "comma separated allowed CORS origins")
	if err := fsFlags.Parse(args); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	cfg.CORSOrigins = splitList(origins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.SensitivityWorkers < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	if c.JobRunners < 1 {
		errs = append(errs, errors.New("at least one job runner is required"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cache TTL must not be negative"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
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
