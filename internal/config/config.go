package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string

	// Upstream tender API configuration
	UpstreamURL      string
	UpstreamAPIKey   string
	UpstreamTimeout  time.Duration
	UpstreamRetries  int
	UpstreamPageSize int

	// Billing configuration
	BillingWebhookSecret string

	// Keyword limits per subscription tier
	FreeKeywordLimit int
	ProKeywordLimit  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		DBType:               getEnv("DB_TYPE", "mysql"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBDatabase:           getEnv("DB_DATABASE", ""),
		DBUser:               getEnv("DB_USER", ""),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:    getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
		UpstreamURL:          getEnv("UPSTREAM_URL", ""),
		UpstreamAPIKey:       getEnv("UPSTREAM_API_KEY", ""),
		UpstreamTimeout:      getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		UpstreamRetries:      getEnvAsInt("UPSTREAM_RETRIES", 3),
		UpstreamPageSize:     getEnvAsInt("UPSTREAM_PAGE_SIZE", 100),
		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
		FreeKeywordLimit:     getEnvAsInt("FREE_KEYWORD_LIMIT", 3),
		ProKeywordLimit:      getEnvAsInt("PRO_KEYWORD_LIMIT", 30),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.AuthzURL == "" {
		return nil, fmt.Errorf("AUTHZ_URL is required")
	}
	if cfg.AuthzClientID == "" {
		return nil, fmt.Errorf("AUTHZ_CLIENT_ID is required")
	}
	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("UPSTREAM_URL is required")
	}
	if cfg.BillingWebhookSecret == "" {
		return nil, fmt.Errorf("BILLING_WEBHOOK_SECRET is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a Go duration string or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
