// Package config provides configuration loading and management for the application.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Upstream provider
	APIKey      string
	BaseURL     string
	MaxRetries  int
	BackoffBase time.Duration

	// Request parameters
	PriceWindow    time.Duration
	PriceStride    string
	HolderInterval string
	HolderLookback time.Duration

	// Upstream request budget; 0 disables throttling
	UpstreamRPS   float64
	UpstreamBurst int

	// Run the three retrievals of a token in parallel
	ConcurrentFetch bool

	// Output sinks; empty values disable the sink
	OutputPath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	DatabaseURL   string
	WebhookURL    string
	WebhookAPIKey string

	// Hex secp256k1 key signing webhook bodies; empty disables signing
	WebhookSigningKey string

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// HTTP server settings
	Port           string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	EnableMetrics  bool

	// Logging
	LogFormat string
	LogLevel  string

	// Token ids for one-shot runs
	TokenIDs []string
}

// Load creates a new Config from environment variables
func Load() Config {
	return Config{
		APIKey:            GetEnvOrDefault("VYBE_API_KEY", GetEnvOrDefault("VYBE_API", "")),
		BaseURL:           GetEnvOrDefault("VYBE_BASE_URL", "https://api.vybenetwork.xyz"),
		MaxRetries:        GetEnvAsInt("MAX_RETRIES", 3),
		BackoffBase:       GetEnvAsDuration("BACKOFF_BASE", time.Second),
		PriceWindow:       GetEnvAsDuration("PRICE_WINDOW", 24*time.Hour),
		PriceStride:       GetEnvOrDefault("PRICE_STRIDE", "1 hour"),
		HolderInterval:    GetEnvOrDefault("HOLDER_INTERVAL", "day"),
		HolderLookback:    GetEnvAsDuration("HOLDER_LOOKBACK", 7*24*time.Hour),
		UpstreamRPS:       GetEnvAsFloat("UPSTREAM_RPS", 0),
		UpstreamBurst:     GetEnvAsInt("UPSTREAM_BURST", 1),
		ConcurrentFetch:   GetEnvAsBool("CONCURRENT_FETCH", false),
		OutputPath:        GetEnvOrDefault("OUTPUT_PATH", "processed_data.json"),
		RedisAddr:         GetEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword:     GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:           GetEnvAsInt("REDIS_DB", 0),
		RedisPrefix:       GetEnvOrDefault("REDIS_PREFIX", "token-features:"),
		DatabaseURL:       GetEnvOrDefault("DATABASE_URL", ""),
		WebhookURL:        GetEnvOrDefault("WEBHOOK_URL", ""),
		WebhookAPIKey:     GetEnvOrDefault("WEBHOOK_API_KEY", ""),
		WebhookSigningKey: GetEnvOrDefault("WEBHOOK_SIGNING_KEY", ""),
		OtelEndpoint:      GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Port:              GetEnvOrDefault("PORT", "8080"),
		RequestTimeout:    GetEnvAsDuration("REQUEST_TIMEOUT", 0),
		RateLimitRPS:      GetEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:    GetEnvAsInt("RATE_LIMIT_BURST", 5),
		EnableMetrics:     GetEnvAsBool("ENABLE_METRICS", true),
		LogFormat:         strings.ToLower(GetEnvOrDefault("LOG_FORMAT", "text")),
		LogLevel:          strings.ToLower(GetEnvOrDefault("LOG_LEVEL", "info")),
		TokenIDs:          GetEnvAsList("TOKEN_IDS"),
	}
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("VYBE_API_KEY is not set"))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, errors.New("MAX_RETRIES must be positive"))
	}
	if c.PriceWindow <= 0 {
		errs = append(errs, errors.New("PRICE_WINDOW must be positive"))
	}
	if c.UpstreamRPS > 0 && c.UpstreamBurst < 1 {
		errs = append(errs, errors.New("UPSTREAM_BURST must be at least 1 when UPSTREAM_RPS is set"))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be at least 1 when RATE_LIMIT_RPS is set"))
	}
	return errors.Join(errs...)
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvAsList splits a comma-separated variable, dropping empty items
func GetEnvAsList(key string) []string {
	value, exists := GetEnv(key)
	if !exists {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
