package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Security  SecurityConfig  `json:"security" yaml:"security"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Swipe     SwipeConfig     `json:"swipe" yaml:"swipe"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	Features  FeaturesConfig  `json:"features" yaml:"features"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port      string `json:"port" yaml:"port"`
	Host      string `json:"host" yaml:"host"`
	EnableTLS bool   `json:"enable_tls" yaml:"enable_tls"`
	CertFile  string `json:"cert_file" yaml:"cert_file"`
	KeyFile   string `json:"key_file" yaml:"key_file"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 10MB)
	MaxRequestBodySize int64 `json:"max_request_body_size" yaml:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins" yaml:"allowed_origins"`
	JWTSecret      string `json:"jwt_secret" yaml:"jwt_secret"`
	// Bearer token lifetime in minutes
	TokenTTL int `json:"token_ttl" yaml:"token_ttl"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Rate    int  `json:"rate" yaml:"rate"`
	Window  int  `json:"window" yaml:"window"` // in seconds
}

// RedisConfig selects the session store backend. When disabled sessions live
// in process memory.
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	Environment string `json:"environment" yaml:"environment"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or text
}

// SwipeConfig tunes the swipe deck engine.
type SwipeConfig struct {
	Threshold      float64 `json:"threshold" yaml:"threshold"`
	ScreenWidth    float64 `json:"screen_width" yaml:"screen_width"`
	ExitDurationMS int     `json:"exit_duration_ms" yaml:"exit_duration_ms"`
}

type SessionConfig struct {
	// Idle lifetime of deck and onboarding sessions in minutes
	TTL int `json:"ttl" yaml:"ttl"`
}

type FeaturesConfig struct {
	TradePreview      bool `json:"trade_preview" yaml:"trade_preview"`
	ButtonAffordances bool `json:"button_affordances" yaml:"button_affordances"`
	EventHooks        bool `json:"event_hooks" yaml:"event_hooks"`
	DevTokens         bool `json:"dev_tokens" yaml:"dev_tokens"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Database: DatabaseConfig{
			Path: "./trockle.db",
		},
		Security: SecurityConfig{
			MaxRequestBodySize: 10 << 20,
			AllowedOrigins:     "*",
			TokenTTL:           24 * 60,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Window:  60,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "trockle:",
		},
		Tracing: TracingConfig{
			Endpoint:    "http://localhost:14268/api/traces",
			Environment: "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Swipe: SwipeConfig{
			Threshold:      120,
			ScreenWidth:    390,
			ExitDurationMS: 250,
		},
		Session: SessionConfig{
			TTL: 30,
		},
		Features: FeaturesConfig{
			TradePreview:      true,
			ButtonAffordances: true,
			EventHooks:        true,
		},
	}
}

// LoadConfig loads configuration from defaults, an optional JSON or YAML
// config file, and environment variables, in increasing precedence.
func LoadConfig(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	overrideFromEnv(cfg)

	return cfg, nil
}

// loadFromFile decodes a config file, choosing YAML for .yaml/.yml and JSON
// otherwise.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	envString("SERVER_PORT", &cfg.Server.Port)
	envString("SERVER_HOST", &cfg.Server.Host)
	envBool("SERVER_ENABLE_TLS", &cfg.Server.EnableTLS)
	envString("SERVER_CERT_FILE", &cfg.Server.CertFile)
	envString("SERVER_KEY_FILE", &cfg.Server.KeyFile)

	envString("DATABASE_PATH", &cfg.Database.Path)

	envInt64("MAX_REQUEST_BODY_SIZE", &cfg.Security.MaxRequestBodySize)
	envString("ALLOWED_ORIGINS", &cfg.Security.AllowedOrigins)
	envString("JWT_SECRET", &cfg.Security.JWTSecret)
	envInt("TOKEN_TTL", &cfg.Security.TokenTTL)

	envBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	envInt("RATE_LIMIT_RATE", &cfg.RateLimit.Rate)
	envInt("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	envBool("REDIS_ENABLED", &cfg.Redis.Enabled)
	envString("REDIS_ADDR", &cfg.Redis.Addr)
	envString("REDIS_PASSWORD", &cfg.Redis.Password)
	envInt("REDIS_DB", &cfg.Redis.DB)
	envString("REDIS_PREFIX", &cfg.Redis.Prefix)

	envBool("TRACING_ENABLED", &cfg.Tracing.Enabled)
	envString("TRACING_ENDPOINT", &cfg.Tracing.Endpoint)
	envString("TRACING_ENVIRONMENT", &cfg.Tracing.Environment)

	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FORMAT", &cfg.Log.Format)

	envFloat("SWIPE_THRESHOLD", &cfg.Swipe.Threshold)
	envFloat("SWIPE_SCREEN_WIDTH", &cfg.Swipe.ScreenWidth)
	envInt("SWIPE_EXIT_DURATION_MS", &cfg.Swipe.ExitDurationMS)

	envInt("SESSION_TTL", &cfg.Session.TTL)

	envBool("FEATURE_TRADE_PREVIEW", &cfg.Features.TradePreview)
	envBool("FEATURE_BUTTON_AFFORDANCES", &cfg.Features.ButtonAffordances)
	envBool("FEATURE_EVENT_HOOKS", &cfg.Features.EventHooks)
	envBool("FEATURE_DEV_TOKENS", &cfg.Features.DevTokens)
}

// envString sets dst from an environment variable when it is non-empty.
func envString(key string, dst *string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

// envBool accepts "true" (any case) and "1" as true.
func envBool(key string, dst *bool) {
	if value := os.Getenv(key); value != "" {
		*dst = strings.ToLower(value) == "true" || value == "1"
	}
}

// envInt ignores values that do not parse.
func envInt(key string, dst *int) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*dst = i
		}
	}
}

func envInt64(key string, dst *int64) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = f
		}
	}
}

// TokenTTL returns the bearer token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Security.TokenTTL) * time.Minute
}

// SessionTTL returns the idle lifetime of interactive sessions.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTL) * time.Minute
}

// ExitDuration returns the swipe exit animation length.
func (c *Config) ExitDuration() time.Duration {
	return time.Duration(c.Swipe.ExitDurationMS) * time.Millisecond
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.EnableTLS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return fmt.Errorf("cert file and key file are required when TLS is enabled")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	if c.Swipe.Threshold <= 0 {
		return fmt.Errorf("swipe threshold must be positive")
	}
	if c.Swipe.ScreenWidth <= 0 {
		return fmt.Errorf("swipe screen width must be positive")
	}
	if c.Swipe.ExitDurationMS < 0 {
		return fmt.Errorf("swipe exit duration must not be negative")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.Log.Format)
	}
	return nil
}
