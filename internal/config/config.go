package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnv       = "development"
	productionEnv    = "production"
	envVarRuntimeEnv = "FAULTLINE_ENV"
)

// Config holds all configuration for the faultline server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Tracker  TrackerConfig
	Dedup    DedupConfig
	Admin    AdminConfig
	Ingest   IngestConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// TrackerConfig selects and authenticates the external issue tracker.
// An empty APIKey or Team is valid and yields a disabled reporter.
type TrackerConfig struct {
	Kind    string
	APIKey  string
	Team    string
	Label   string
	BaseURL string
	Timeout time.Duration
}

type DedupConfig struct {
	Backend       string
	TTL           time.Duration
	SweepInterval time.Duration
}

type AdminConfig struct {
	PasswordHash string
}

type IngestConfig struct {
	RequestsPerMin int
}

var validTrackers = map[string]bool{
	"linear": true,
	"github": true,
}

var validDedupBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FAULTLINE_PORT", 8080),
			Env:  Environment(),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Tracker: TrackerConfig{
			Kind:    envString("ERROR_TRACKER", "linear"),
			APIKey:  os.Getenv("ERROR_TRACKER_API_KEY"),
			Team:    os.Getenv("ERROR_TRACKER_TEAM"),
			Label:   os.Getenv("ERROR_TRACKER_LABEL"),
			BaseURL: os.Getenv("ERROR_TRACKER_BASE_URL"),
			Timeout: envDuration("ERROR_TRACKER_TIMEOUT", 5*time.Second),
		},
		Dedup: DedupConfig{
			Backend:       envString("DEDUP_BACKEND", "memory"),
			TTL:           envDuration("DEDUP_TTL", 24*time.Hour),
			SweepInterval: envDuration("DEDUP_SWEEP_INTERVAL", time.Hour),
		},
		Admin: AdminConfig{
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Ingest: IngestConfig{
			RequestsPerMin: envInt("INGEST_RATE_LIMIT", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validTrackers[c.Tracker.Kind] {
		return fmt.Errorf("ERROR_TRACKER must be one of linear, github; got %q", c.Tracker.Kind)
	}
	if c.Tracker.BaseURL != "" &&
		!strings.HasPrefix(c.Tracker.BaseURL, "http://") && !strings.HasPrefix(c.Tracker.BaseURL, "https://") {
		return fmt.Errorf("ERROR_TRACKER_BASE_URL must start with http:// or https://, got %q", c.Tracker.BaseURL)
	}
	if c.Tracker.Timeout <= 0 {
		return fmt.Errorf("ERROR_TRACKER_TIMEOUT must be positive")
	}

	if !validDedupBackends[c.Dedup.Backend] {
		return fmt.Errorf("DEDUP_BACKEND must be one of memory, redis; got %q", c.Dedup.Backend)
	}
	if c.Dedup.TTL <= 0 {
		return fmt.Errorf("DEDUP_TTL must be positive")
	}
	if c.Dedup.SweepInterval < time.Second {
		return fmt.Errorf("DEDUP_SWEEP_INTERVAL must be at least 1s")
	}

	if h := c.Admin.PasswordHash; h != "" && !isBcryptHash(h) {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash")
	}

	return nil
}

// ReportingEnabled reports whether the environment and credentials allow
// errors to be forwarded to the issue tracker.
func (c *Config) ReportingEnabled() bool {
	return IsProduction(c.Server.Env) && c.Tracker.APIKey != "" && c.Tracker.Team != ""
}

// Environment returns the runtime environment name. It reads FAULTLINE_ENV on
// every call and defaults to "development".
func Environment() string {
	return envString(envVarRuntimeEnv, defaultEnv)
}

// IsProduction reports whether env names a production deployment.
func IsProduction(env string) bool {
	return strings.EqualFold(env, productionEnv)
}

func isBcryptHash(s string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
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
