package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ent0n29/employee-api/internal/reliability"
)

// Config contains all runtime settings for the employee API.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Retry    RetryConfig    `koanf:"retry"`
	Audit    AuditConfig    `koanf:"audit"`
}

type AppConfig struct {
	BindAddr         string        `koanf:"bind_addr"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
	APIPrefix        string        `koanf:"api_prefix"`
	MetricsNamespace string        `koanf:"metrics_namespace"`
	TopN             int           `koanf:"top_n"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type UpstreamConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	RateBurst int           `koanf:"rate_burst"`
}

type RetryConfig struct {
	MaxAttempts  int           `koanf:"max_attempts"`
	BackoffDelay time.Duration `koanf:"backoff_delay"`
	Strategy     string        `koanf:"strategy"`
	MaxDelay     time.Duration `koanf:"max_delay"`
}

type AuditConfig struct {
	DatabaseURL string `koanf:"database_url"`
	Retention   int    `koanf:"retention"`
}

// Policy converts the retry settings into a reliability policy.
func (c RetryConfig) Policy() reliability.Policy {
	return reliability.Policy{
		MaxAttempts:  c.MaxAttempts,
		BackoffDelay: c.BackoffDelay,
		Strategy:     reliability.Strategy(strings.ToLower(strings.TrimSpace(c.Strategy))),
		MaxDelay:     c.MaxDelay,
	}
}

// envKeys maps supported environment variables to configuration keys.
var envKeys = map[string]string{
	"APP_BIND_ADDR":         "app.bind_addr",
	"APP_SHUTDOWN_TIMEOUT":  "app.shutdown_timeout",
	"APP_API_PREFIX":        "app.api_prefix",
	"APP_METRICS_NAMESPACE": "app.metrics_namespace",
	"APP_TOP_N":             "app.top_n",
	"LOG_LEVEL":             "log.level",
	"LOG_PRETTY":            "log.pretty",
	"UPSTREAM_BASE_URL":     "upstream.base_url",
	"UPSTREAM_TIMEOUT":      "upstream.timeout",
	"UPSTREAM_RATE_LIMIT":   "upstream.rate_limit",
	"UPSTREAM_RATE_BURST":   "upstream.rate_burst",
	"RETRY_MAX_ATTEMPTS":    "retry.max_attempts",
	"RETRY_BACKOFF_DELAY":   "retry.backoff_delay",
	"RETRY_STRATEGY":        "retry.strategy",
	"RETRY_MAX_DELAY":       "retry.max_delay",
	"DATABASE_URL":          "audit.database_url",
	"AUDIT_RETENTION":       "audit.retention",
}

func defaults() map[string]any {
	return map[string]any{
		"app.bind_addr":         ":8111",
		"app.shutdown_timeout":  "15s",
		"app.api_prefix":        "/api/v1/employee",
		"app.metrics_namespace": "employee_api",
		"app.top_n":             10,
		"log.level":             "info",
		"log.pretty":            false,
		"upstream.base_url":     "http://localhost:8112/api/v1/employee",
		"upstream.timeout":      "10s",
		"upstream.rate_limit":   0,
		"upstream.rate_burst":   1,
		"retry.max_attempts":    3,
		"retry.backoff_delay":   "2s",
		"retry.strategy":        string(reliability.FixedDelay),
		"retry.max_delay":       "30s",
		"audit.database_url":    "",
		"audit.retention":       1000,
	}
}

// Load reads configuration with the following priority, highest first:
// environment variables, the YAML file named by APP_CONFIG_FILE, defaults.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider("", ".", func(s string) string {
		key, ok := envKeys[s]
		if !ok || strings.TrimSpace(os.Getenv(s)) == "" {
			return ""
		}
		return key
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := checkDurationUnits(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Upstream.BaseURL), "/")
	cfg.App.APIPrefix = "/" + strings.Trim(strings.TrimSpace(cfg.App.APIPrefix), "/")

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// durationKeys hold time.Duration settings. Weak decoding would read a bare
// number as nanoseconds, so a unit is required.
var durationKeys = []string{
	"app.shutdown_timeout",
	"upstream.timeout",
	"retry.backoff_delay",
	"retry.max_delay",
}

func checkDurationUnits(k *koanf.Koanf) error {
	for _, key := range durationKeys {
		switch v := k.Get(key).(type) {
		case int, int64, float64, uint64:
			return fmt.Errorf("%s: %v has no unit, use a duration such as \"2s\" or \"2000ms\"", key, v)
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return fmt.Errorf("%s: %q has no unit, use a duration such as \"2s\" or \"2000ms\"", key, v)
			}
		}
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func Validate(cfg Config) error {
	if err := ValidateBaseURL(cfg.Upstream.BaseURL); err != nil {
		return fmt.Errorf("UPSTREAM_BASE_URL: %w", err)
	}
	if cfg.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if cfg.Upstream.RateLimit < 0 {
		return fmt.Errorf("UPSTREAM_RATE_LIMIT must be >= 0")
	}
	if cfg.Upstream.RateLimit > 0 && cfg.Upstream.RateBurst < 1 {
		return fmt.Errorf("UPSTREAM_RATE_BURST must be at least 1")
	}
	if err := cfg.Retry.Policy().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if cfg.App.TopN < 1 {
		return fmt.Errorf("APP_TOP_N must be at least 1")
	}
	if cfg.App.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if cfg.App.APIPrefix == "/" {
		return fmt.Errorf("APP_API_PREFIX must not be the root path")
	}
	if cfg.Audit.Retention < 0 {
		return fmt.Errorf("AUDIT_RETENTION must be >= 0")
	}
	return nil
}

// ValidateBaseURL requires an absolute http(s) URL with a host.
func ValidateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}
