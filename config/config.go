package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const defaultJWTSecret = "your-super-secret-jwt-key-change-in-production"

// Config holds all configuration for the application
type Config struct {
	Environment   string `envconfig:"ENVIRONMENT" default:"development"`
	Port          string `envconfig:"PORT" default:"5000"`
	DatabaseURL   string `envconfig:"DATABASE_URL" default:"furnishop.db"`
	JWTSecret     string `envconfig:"JWT_SECRET" default:"your-super-secret-jwt-key-change-in-production"`
	JWTExpiration int    `envconfig:"JWT_EXPIRATION" default:"604800"` // seconds, 7 days

	// Object storage (Google Cloud Storage)
	GCSBucket          string        `envconfig:"GCS_BUCKET"`
	GCSPublicBaseURL   string        `envconfig:"GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	GCSCredentialsFile string        `envconfig:"GCS_CREDENTIALS_FILE"`
	GCSSignerEmail     string        `envconfig:"GCS_SIGNER_EMAIL"`
	SignedURLTTL       time.Duration `envconfig:"SIGNED_URL_TTL" default:"1h"`

	// Catalog cache
	RedisURL string        `envconfig:"REDIS_URL"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// CORS
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001,https://furnishop-client.vercel.app"`
	AllowAllOrigins bool     `envconfig:"ALLOW_ALL_ORIGINS" default:"false"`

	// Rate limiting
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"300"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	MaxRequestSize    int64         `envconfig:"MAX_REQUEST_SIZE" default:"62914560"` // 60MB, above the largest upload class
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	return &cfg, nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET must be set in production")
		}
	}

	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}

	return nil
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %s, DatabaseURL: %s, Bucket: %s}", c.Environment, c.Port, c.DatabaseURL, c.GCSBucket)
}
