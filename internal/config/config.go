// Package config centralizes the gatekeeper configuration surface: defaults,
// YAML file loading and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// APIPrefix gates which request paths the gatekeeper inspects.
	// Requests outside the prefix bypass it entirely.
	APIPrefix string `yaml:"api_prefix"`

	RequireAPIKey    bool     `yaml:"require_api_key"`
	APIKeyHeader     string   `yaml:"api_key_header"`
	APIKeyQueryParam string   `yaml:"api_key_query_param"`
	AllowAPIKeyQuery bool     `yaml:"allow_api_key_query"`
	ValidAPIKeys     []string `yaml:"valid_api_keys"`

	RequireUserAgent bool  `yaml:"require_user_agent"`
	MaxBodyBytes     int64 `yaml:"max_body_bytes"`

	RateLimitWindowMinutes int            `yaml:"rate_limit_window_minutes"`
	DefaultRateLimit       int            `yaml:"default_rate_limit"`
	EndpointRateLimits     map[string]int `yaml:"endpoint_rate_limits"`

	BotDetectionEnabled bool `yaml:"bot_detection_enabled"`
	BotBlockingEnabled  bool `yaml:"bot_blocking_enabled"`

	AllowedIPs           []string `yaml:"allowed_ips"`
	BlockDurationMinutes int      `yaml:"block_duration_minutes"`

	LogLevel string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		APIPrefix:        "/api",
		APIKeyHeader:     "X-API-Key",
		APIKeyQueryParam: "api_key",
		RequireUserAgent: true,
		MaxBodyBytes:     1 << 20,

		RateLimitWindowMinutes: 15,
		DefaultRateLimit:       100,
		EndpointRateLimits: map[string]int{
			"/api/auth/login":    5,
			"/api/auth/register": 3,
			"/api/auth/":         10,
			"/api/users":         100,
		},

		BotDetectionEnabled:  true,
		BotBlockingEnabled:   false,
		BlockDurationMinutes: 30,

		LogLevel: "INFO",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	_ = godotenv.Load()
	applyEnv(&cfg)

	return cfg.Normalize(), nil
}

// Normalize fills zero-valued required fields with their defaults so a
// partially specified Config is always usable.
func (c Config) Normalize() Config {
	def := Default()

	if c.APIPrefix == "" {
		c.APIPrefix = def.APIPrefix
	}
	if c.APIKeyHeader == "" {
		c.APIKeyHeader = def.APIKeyHeader
	}
	if c.APIKeyQueryParam == "" {
		c.APIKeyQueryParam = def.APIKeyQueryParam
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.RateLimitWindowMinutes <= 0 {
		c.RateLimitWindowMinutes = def.RateLimitWindowMinutes
	}
	if c.DefaultRateLimit <= 0 {
		c.DefaultRateLimit = def.DefaultRateLimit
	}
	if c.BlockDurationMinutes <= 0 {
		c.BlockDurationMinutes = def.BlockDurationMinutes
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return c
}

// Window returns the rate-limit window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}

// BlockDuration returns how long Critical-level clients stay blocked.
func (c Config) BlockDuration() time.Duration {
	return time.Duration(c.BlockDurationMinutes) * time.Minute
}

func applyEnv(cfg *Config) {
	cfg.APIPrefix = getEnv("GATEKEEPER_API_PREFIX", cfg.APIPrefix)
	cfg.APIKeyHeader = getEnv("GATEKEEPER_API_KEY_HEADER", cfg.APIKeyHeader)
	cfg.LogLevel = getEnv("GATEKEEPER_LOG_LEVEL", cfg.LogLevel)

	cfg.RequireAPIKey = getEnvBool("GATEKEEPER_REQUIRE_API_KEY", cfg.RequireAPIKey)
	cfg.RequireUserAgent = getEnvBool("GATEKEEPER_REQUIRE_USER_AGENT", cfg.RequireUserAgent)
	cfg.BotDetectionEnabled = getEnvBool("GATEKEEPER_BOT_DETECTION", cfg.BotDetectionEnabled)
	cfg.BotBlockingEnabled = getEnvBool("GATEKEEPER_BOT_BLOCKING", cfg.BotBlockingEnabled)

	cfg.DefaultRateLimit = getEnvInt("GATEKEEPER_DEFAULT_RATE_LIMIT", cfg.DefaultRateLimit)
	cfg.RateLimitWindowMinutes = getEnvInt("GATEKEEPER_RATE_LIMIT_WINDOW_MINUTES", cfg.RateLimitWindowMinutes)
	cfg.BlockDurationMinutes = getEnvInt("GATEKEEPER_BLOCK_DURATION_MINUTES", cfg.BlockDurationMinutes)
	cfg.MaxBodyBytes = int64(getEnvInt("GATEKEEPER_MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))

	cfg.ValidAPIKeys = getEnvList("GATEKEEPER_VALID_API_KEYS", cfg.ValidAPIKeys)
	cfg.AllowedIPs = getEnvList("GATEKEEPER_ALLOWED_IPS", cfg.AllowedIPs)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
