package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session store backends.
const (
	BackendMemory   = "memory"
	BackendValkey   = "valkey"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendObject   = "object"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Auth     AuthConfig     `yaml:"auth"`
	Journal  JournalConfig  `yaml:"journal"`
	Sessions SessionsConfig `yaml:"sessions"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures retries of reads that never reach the records API.
// Disabled by default.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// UpstreamConfig points at the records REST API.
type UpstreamConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
	Token   string        `yaml:"token"`
}

// AuthConfig controls bearer token inspection.
type AuthConfig struct {
	Secret string        `yaml:"secret"`
	Leeway time.Duration `yaml:"leeway"`
}

// JournalConfig tunes the day aggregator and calendar.
type JournalConfig struct {
	Timezone            string `yaml:"timezone"`
	PreviousLookupLimit int    `yaml:"previousLookupLimit"`
	MaxLookbackPages    int    `yaml:"maxLookbackPages"`
}

// Location resolves Timezone.
func (j JournalConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(j.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(j.Timezone)
}

// SessionsConfig selects where the AI session cache lives.
type SessionsConfig struct {
	Backend  string         `yaml:"backend"`
	Key      string         `yaml:"key"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Object   ObjectConfig   `yaml:"object"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// SQLiteConfig locates the device-local database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ObjectConfig locates an S3-compatible bucket.
type ObjectConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// MetricsConfig exposes the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.Timeout = parsed
		}
	}
	if v := os.Getenv("TODOC_TOKEN"); v != "" {
		cfg.Upstream.Token = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("JOURNAL_TIMEZONE"); v != "" {
		cfg.Journal.Timezone = v
	}
	if v := os.Getenv("JOURNAL_PREVIOUS_LOOKUP_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Journal.PreviousLookupLimit = parsed
		}
	}
	if v := os.Getenv("JOURNAL_MAX_LOOKBACK_PAGES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Journal.MaxLookbackPages = parsed
		}
	}
	if v := os.Getenv("SESSIONS_BACKEND"); v != "" {
		cfg.Sessions.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SESSIONS_KEY"); v != "" {
		cfg.Sessions.Key = v
	}
	if v := os.Getenv("SESSIONS_REDIS_ADDR"); v != "" {
		cfg.Sessions.Redis.Addr = v
	}
	if v := os.Getenv("SESSIONS_POSTGRES_DSN"); v != "" {
		cfg.Sessions.Postgres.DSN = v
	}
	if v := os.Getenv("SESSIONS_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Sessions.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("SESSIONS_SQLITE_PATH"); v != "" {
		cfg.Sessions.SQLite.Path = v
	}
	if v := os.Getenv("SESSIONS_OBJECT_ENDPOINT"); v != "" {
		cfg.Sessions.Object.Endpoint = v
	}
	if v := os.Getenv("SESSIONS_OBJECT_ACCESS_KEY"); v != "" {
		cfg.Sessions.Object.AccessKey = v
	}
	if v := os.Getenv("SESSIONS_OBJECT_SECRET_KEY"); v != "" {
		cfg.Sessions.Object.SecretKey = v
	}
	if v := os.Getenv("SESSIONS_OBJECT_BUCKET"); v != "" {
		cfg.Sessions.Object.Bucket = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			Retry: RetryConfig{
				Enabled:     false,
				MaxAttempts: 2,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/ai/chat",
				},
			},
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Upstream: UpstreamConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			Leeway: 30 * time.Second,
		},
		Journal: JournalConfig{
			Timezone:            "Asia/Seoul",
			PreviousLookupLimit: 20,
			MaxLookbackPages:    5,
		},
		Sessions: SessionsConfig{
			Backend: BackendMemory,
			Key:     "todoc_ai_sessions",
			Redis:   RedisConfig{Prefix: "todoc"},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			SQLite: SQLiteConfig{Path: defaultSQLitePath()},
			Object: ObjectConfig{Prefix: "sessions"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func defaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "todoc/sessions.db"
	}
	return dir + string(os.PathSeparator) + "todoc" + string(os.PathSeparator) + "sessions.db"
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return errors.New("upstream.baseUrl cannot be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	if _, err := c.Journal.Location(); err != nil {
		return fmt.Errorf("journal.timezone: %w", err)
	}
	if c.Journal.PreviousLookupLimit <= 0 || c.Journal.PreviousLookupLimit > 100 {
		return errors.New("journal.previousLookupLimit must be between 1 and 100")
	}
	if c.Journal.MaxLookbackPages <= 0 {
		return errors.New("journal.maxLookbackPages must be positive")
	}
	switch c.Sessions.Backend {
	case BackendMemory:
	case BackendValkey:
		if strings.TrimSpace(c.Sessions.Redis.Addr) == "" {
			return errors.New("sessions.redis.addr cannot be empty for the valkey backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.Sessions.Postgres.DSN) == "" {
			return errors.New("sessions.postgres.dsn cannot be empty for the postgres backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Sessions.SQLite.Path) == "" {
			return errors.New("sessions.sqlite.path cannot be empty for the sqlite backend")
		}
	case BackendObject:
		if strings.TrimSpace(c.Sessions.Object.Endpoint) == "" || strings.TrimSpace(c.Sessions.Object.Bucket) == "" {
			return errors.New("sessions.object.endpoint and bucket are required for the object backend")
		}
	default:
		return fmt.Errorf("sessions.backend %q is not supported", c.Sessions.Backend)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
