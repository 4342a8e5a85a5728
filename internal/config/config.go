package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the GraphPredict server.
type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	Graph   GraphConfig
	Jobs    JobsConfig
	Archive ArchiveConfig
	Auth    AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type RedisConfig struct {
	URL string
}

type GraphConfig struct {
	BaseURL  string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

type JobsConfig struct {
	// Retention is the expiry window for job records in the primary store.
	Retention time.Duration
	// MaxConcurrent bounds the number of in-flight workers. Zero means
	// unbounded worker-per-job, the baseline behavior.
	MaxConcurrent int
	RatePerMin    int
}

type ArchiveConfig struct {
	// DatabaseURL enables the Postgres terminal-job archive when set.
	DatabaseURL   string
	MigrationsDir string
}

type AuthConfig struct {
	// APIKeyHash is a bcrypt hash of the bearer token required on
	// /api/v1 routes. Empty disables authentication.
	APIKeyHash string
}

// Load reads configuration from the environment (and a .env file when
// present) and returns a validated Config.
func Load() (*Config, error) {
	// Best-effort: a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("GRAPHPREDICT_PORT", 8080),
			Env:  envString("GRAPHPREDICT_ENV", "development"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Graph: GraphConfig{
			BaseURL:  os.Getenv("GRAPH_BASE_URL"),
			Database: envString("GRAPH_DATABASE", "neo4j"),
			Username: os.Getenv("GRAPH_USERNAME"),
			Password: os.Getenv("GRAPH_PASSWORD"),
			Timeout:  envDuration("GRAPH_TIMEOUT", 30*time.Second),
		},
		Jobs: JobsConfig{
			Retention:     envDuration("JOB_RETENTION", time.Hour),
			MaxConcurrent: envInt("JOBS_MAX_CONCURRENT", 0),
			RatePerMin:    envInt("RATE_LIMIT_PER_MIN", 60),
		},
		Archive: ArchiveConfig{
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			MigrationsDir: envString("MIGRATIONS_DIR", "migrations"),
		},
		Auth: AuthConfig{
			APIKeyHash: os.Getenv("API_KEY_HASH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Graph.BaseURL == "" {
		return fmt.Errorf("GRAPH_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Graph.BaseURL, "http://") && !strings.HasPrefix(c.Graph.BaseURL, "https://") {
		return fmt.Errorf("GRAPH_BASE_URL must start with http:// or https://, got %q", c.Graph.BaseURL)
	}

	if c.Jobs.Retention <= 0 {
		return fmt.Errorf("JOB_RETENTION must be positive, got %s", c.Jobs.Retention)
	}
	if c.Jobs.MaxConcurrent < 0 {
		return fmt.Errorf("JOBS_MAX_CONCURRENT must be >= 0, got %d", c.Jobs.MaxConcurrent)
	}

	// REDIS_URL is optional: when unset or unreachable the server falls
	// back to the in-process job store and reports degraded health.

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
