package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "PORT", "JWT_EXPIRATION", "SIGNED_URL_TTL", "ALLOWED_ORIGINS", "JWT_SECRET", "DATABASE_URL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 604800, cfg.JWTExpiration)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
	assert.Contains(t, cfg.AllowedOrigins, "http://localhost:3000")
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Test")
	t.Setenv("PORT", "9000")
	t.Setenv("GCS_BUCKET", "furnishop-assets")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "furnishop-assets", cfg.GCSBucket)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid development", func(c *Config) {}, ""},
		{"unknown environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT secret is required"},
		{"production with default secret", func(c *Config) { c.Environment = "production" }, "JWT_SECRET"},
		{"production without bucket", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "a-real-secret"
		}, "GCS_BUCKET"},
		{"bad rate limit", func(c *Config) { c.RateLimitRequests = 0 }, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Environment:       "development",
				DatabaseURL:       "furnishop.db",
				JWTSecret:         defaultJWTSecret,
				RateLimitRequests: 10,
				RateLimitWindow:   time.Minute,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
