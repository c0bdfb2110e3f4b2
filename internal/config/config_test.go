package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "TAX_DATA_SOURCE", "TAX_REFRESH_SCHEDULE", "REDIS_ADDR", "CORS_ORIGINS", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.TaxDataSource)
	assert.Empty(t, cfg.TaxRefreshSchedule)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TAX_DATA_SOURCE", "s3://rates/il.json")
	t.Setenv("TAX_CACHE_TTL", "90m")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "s3://rates/il.json", cfg.TaxDataSource)
	assert.Equal(t, 90*time.Minute, cfg.TaxCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.MaxRetries)
}
