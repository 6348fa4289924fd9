package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeaturesFromEnv(t *testing.T) {
	f := FeaturesFromEnv([]string{
		"FEATURE_EVENTING=true",
		"FEATURE_OTHER=false",
		"FEATURE_BROKEN=maybe",
		"PATH=/usr/bin",
	})

	assert.True(t, f.IsEnabled(context.Background(), FeatureEventing))
	assert.False(t, f.IsEnabled(context.Background(), "other"))
	assert.False(t, f.IsEnabled(context.Background(), "broken"))
	assert.False(t, f.IsEnabled(context.Background(), "missing"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ENV_KEY_PORT, "")
	t.Setenv(ENV_KEY_EVENTING_MODE, "")
	t.Setenv(ENV_KEY_EVENTING_MAX_RETRIES, "")
	t.Setenv(ENV_KEY_DB_DRIVER, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, EventingModeInProcess, cfg.Eventing.Mode)
	assert.Equal(t, 3, cfg.Eventing.MaxRetries)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("port", func(t *testing.T) {
		t.Setenv(ENV_KEY_PORT, "eighty")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("eventing mode", func(t *testing.T) {
		t.Setenv(ENV_KEY_EVENTING_MODE, "carrier-pigeon")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("driver", func(t *testing.T) {
		t.Setenv(ENV_KEY_DB_DRIVER, "oracle")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "", RedisConfig{}.Addr())
	assert.Equal(t, "cache:6379", RedisConfig{Host: "cache"}.Addr())
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: "6380"}.Addr())
}
