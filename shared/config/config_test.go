package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.Equal(t, 24, cfg.JWT.ExpiryHours)
	assert.Equal(t, 60*time.Second, cfg.Redis.RankingTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SEED_DEMO", "true")
	t.Setenv("JWT_EXPIRY_HOURS", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
	assert.True(t, cfg.App.SeedDemo)
	assert.Equal(t, 24, cfg.JWT.ExpiryHours)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{App: AppConfig{Timezone: "Nowhere/Imaginary"}}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.App.Timezone = "America/Sao_Paulo"
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}

func TestLocalTimezoneResolvesToZoneName(t *testing.T) {
	t.Setenv("TZ", ":America/Sao_Paulo")
	cfg := &Config{App: AppConfig{Timezone: "Local"}}
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())

	t.Setenv("TZ", "Nowhere/Imaginary")
	assert.Equal(t, time.UTC, cfg.Location())
}
