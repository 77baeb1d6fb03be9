// Package config loads and validates console config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session storage backends accepted by SESSION_STORAGE.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the console HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// MetricsAddr is the address of the Prometheus /metrics listener; empty disables it.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	// GRPCHealthAddr is the address of the gRPC health listener; empty disables it.
	GRPCHealthAddr string `mapstructure:"GRPC_HEALTH_ADDR"`

	// APIBaseURL is the base URL of the maintenance REST API (e.g. http://localhost:8081/api).
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// APITimeout is the per-request timeout of the API client (e.g. "15s").
	APITimeout string `mapstructure:"API_TIMEOUT"`

	// SessionStorage selects durable client storage: memory, redis or postgres.
	SessionStorage string `mapstructure:"SESSION_STORAGE"`
	// RedisURL is the redis:// URL used when SessionStorage is redis.
	RedisURL string `mapstructure:"REDIS_URL"`
	// DatabaseURL is the Postgres DSN used for audit logs and, when selected, session storage.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionStorageTTL is how long stored token/user entries live in Redis (e.g. "168h").
	SessionStorageTTL string `mapstructure:"SESSION_STORAGE_TTL"`
	// SessionIdleTTL is how long an unused in-memory session store is kept before eviction.
	SessionIdleTTL string `mapstructure:"SESSION_IDLE_TTL"`
	// SessionRevalidateInterval is how often an authenticated session re-checks /auth/me; "0" disables.
	SessionRevalidateInterval string `mapstructure:"SESSION_REVALIDATE_INTERVAL"`
	// SessionCookieName is the name of the client id cookie.
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	// CookieSecure sets the Secure attribute on the client id cookie.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`

	// ToastTTL is how long a toast stays visible before automatic removal (e.g. "4s").
	ToastTTL string `mapstructure:"TOAST_TTL"`
	// LoginRatePerMinute is the sustained login attempt rate allowed per client IP.
	LoginRatePerMinute int `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	// LoginRateBurst is the login attempt burst allowed per client IP.
	LoginRateBurst int `mapstructure:"LOGIN_RATE_BURST"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty installs no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext gRPC to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// AuditKafkaBrokers is a comma-separated list of Kafka brokers; when set, audit events are also published.
	AuditKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9091")
	v.SetDefault("GRPC_HEALTH_ADDR", ":9090")
	v.SetDefault("API_BASE_URL", "")
	v.SetDefault("API_TIMEOUT", "15s")
	v.SetDefault("SESSION_STORAGE", StorageMemory)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_STORAGE_TTL", "168h") // 7d
	v.SetDefault("SESSION_IDLE_TTL", "30m")
	v.SetDefault("SESSION_REVALIDATE_INTERVAL", "5m")
	v.SetDefault("SESSION_COOKIE_NAME", "console_sid")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("TOAST_TTL", "4s")
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 5)
	v.SetDefault("LOGIN_RATE_BURST", 5)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "console-audit")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("config: API_BASE_URL must be set")
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	cfg.SessionStorage = strings.ToLower(strings.TrimSpace(cfg.SessionStorage))
	switch cfg.SessionStorage {
	case StorageMemory:
	case StorageRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("config: REDIS_URL must be set when SESSION_STORAGE=redis")
		}
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when SESSION_STORAGE=postgres")
		}
	default:
		return nil, errors.New("config: SESSION_STORAGE must be memory, redis or postgres")
	}

	if cfg.SessionStorage == StorageMemory && cfg.Env == "production" {
		return nil, errors.New("config: SESSION_STORAGE=memory must not be used when APP_ENV=production")
	}

	if cfg.LoginRatePerMinute <= 0 {
		return nil, errors.New("config: LOGIN_RATE_PER_MINUTE must be positive")
	}
	if cfg.LoginRateBurst <= 0 {
		cfg.LoginRateBurst = 1
	}

	return &cfg, nil
}

// APIRequestTimeout parses APITimeout. Returns 15s if unset or invalid.
func (c *Config) APIRequestTimeout() time.Duration {
	return parseDuration(c.APITimeout, 15*time.Second)
}

// StorageTTL parses SessionStorageTTL. Returns 168h if unset or invalid.
func (c *Config) StorageTTL() time.Duration {
	return parseDuration(c.SessionStorageTTL, 168*time.Hour)
}

// IdleTTL parses SessionIdleTTL. Returns 30m if unset or invalid.
func (c *Config) IdleTTL() time.Duration {
	return parseDuration(c.SessionIdleTTL, 30*time.Minute)
}

// RevalidateInterval parses SessionRevalidateInterval. "0" disables revalidation; invalid values return 5m.
func (c *Config) RevalidateInterval() time.Duration {
	d, err := time.ParseDuration(c.SessionRevalidateInterval)
	if err != nil || d < 0 {
		return 5 * time.Minute
	}
	return d
}

// ToastLifetime parses ToastTTL. Returns 4s if unset or invalid.
func (c *Config) ToastLifetime() time.Duration {
	return parseDuration(c.ToastTTL, 4*time.Second)
}

// AuditKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if audit publishing is enabled (non-empty list) and to create the publisher.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
