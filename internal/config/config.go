package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	UpstreamBaseURL    string
	UpstreamToken      string
	CORSAllowedOrigins []string
	CurrencyCode       string

	SessionTTL     time.Duration
	IdempotencyTTL time.Duration

	RateLimitWindow   time.Duration
	RateLimitMax      int
	RateLimitStrategy string

	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int

	LogFormat string
	LogLevel  string

	MetricsBucketsCSV string

	TracingEnabled  bool
	TracingEndpoint string
	TracingSampling float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		UpstreamBaseURL:    strings.TrimSpace(k.String("UPSTREAM_BASE_URL")),
		UpstreamToken:      strings.TrimSpace(k.String("UPSTREAM_TOKEN")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "VND"),

		SessionTTL:     parseDuration(k.String("SESSION_TTL"), "12h"),
		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		RateLimitWindow:   parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:      parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitStrategy: valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), "sliding"),

		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 10),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
		UpstreamTimeout:     parseDuration(k.String("UPSTREAM_TIMEOUT"), "10s"),
		UpstreamMaxAttempts: parseInt(k.String("UPSTREAM_MAX_ATTEMPTS"), 3),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		MetricsBucketsCSV: k.String("METRICS_BUCKETS_MS"),

		TracingEnabled:  parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint: strings.TrimSpace(k.String("TRACING_ENDPOINT")),
		TracingSampling: parseFloat(k.String("TRACING_SAMPLING"), 1),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("UPSTREAM_BASE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
