package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port        int
	LogLevel    string
	CORSOrigins []string

	// Catalog & tax data
	CatalogPath        string // empty uses the embedded catalog
	TaxDataSource      string // "", file path, http(s):// or s3://bucket/key
	TaxRefreshSchedule string // cron expression; empty disables periodic refresh
	TaxCacheTTL        time.Duration

	// Cache
	RedisAddr string // empty keeps the tax document cache in memory

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string

	// Admin
	AdminJWTSecret string

	// AWS
	AWSRegion string
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is read first; it never overrides
// variables already present in the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		CatalogPath:        getEnv("CATALOG_PATH", ""),
		TaxDataSource:      getEnv("TAX_DATA_SOURCE", ""),
		TaxRefreshSchedule: getEnv("TAX_REFRESH_SCHEDULE", ""),
		TaxCacheTTL:        getEnvDuration("TAX_CACHE_TTL", 24*time.Hour),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 100),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AWSRegion: getEnv("AWS_REGION", "us-east-2"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
