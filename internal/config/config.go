// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	ClientURL     string // CORS origin of the browser client; empty or localhost means development
	DBDriver      string
	DBPath        string
	MongoURI      string
	MongoDatabase string

	Auth      AuthConfig
	Media     MediaConfig
	RateLimit RateLimitConfig

	MaxRequestBodySize int64
	ReconcileInterval  time.Duration // 0 disables the background index reconciliation
}

// AuthConfig controls bearer token verification.
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// MediaConfig holds media upload credentials.
type MediaConfig struct {
	URLEndpoint string
	PublicKey   string
	PrivateKey  string
	TokenTTL    time.Duration
}

// Enabled reports whether upload credentials can be issued.
func (m MediaConfig) Enabled() bool {
	return m.PrivateKey != ""
}

// RateLimitConfig controls per-user throttling of write requests.
type RateLimitConfig struct {
	RequestsPerWindow int // 0 disables rate limiting
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "3000"),
		ClientURL:     getEnv("CLIENT_URL", ""),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:        getEnv("DB_PATH", "./data/chats.db"),
		MongoURI:      getEnv("MONGO", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "chatkeep"),
		Auth: AuthConfig{
			Secret:   getEnv("AUTH_SECRET", ""),
			TokenTTL: getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		Media: MediaConfig{
			URLEndpoint: getEnv("IMAGE_KIT_ENDPOINT", ""),
			PublicKey:   getEnv("IMAGE_KIT_PUBLIC_KEY", ""),
			PrivateKey:  getEnv("IMAGE_KIT_PRIVATE_KEY", ""),
			TokenTTL:    getEnvDuration("UPLOAD_TOKEN_TTL", 30*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 60),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		ReconcileInterval:  getEnvDuration("RECONCILE_INTERVAL", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO cannot be empty when DB_DRIVER=mongo")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE cannot be empty")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverMongo, c.DBDriver)
	}
	if !c.IsDevelopment() && c.Auth.Secret == "" {
		return fmt.Errorf("AUTH_SECRET is required outside development")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be > 0")
	}
	if c.Media.TokenTTL <= 0 {
		return fmt.Errorf("UPLOAD_TOKEN_TTL must be > 0")
	}
	if c.RateLimit.RequestsPerWindow < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be >= 0")
	}
	if c.RateLimit.RequestsPerWindow > 0 && c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("RECONCILE_INTERVAL cannot be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.ClientURL == "" ||
		strings.Contains(c.ClientURL, "localhost") ||
		strings.Contains(c.ClientURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the browser client.
func (c *Config) AllowedOrigins() []string {
	if c.ClientURL == "" {
		return []string{"*"}
	}
	return []string{strings.TrimSuffix(c.ClientURL, "/")}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
