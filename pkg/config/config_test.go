package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp isolates Load from any .env, config.yaml or inherited variables.
func chdirTemp(t *testing.T) string {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, "")
	for key := range envKeys {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/letterly")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "local", cfg.Realtime.Broker)
	assert.Equal(t, "@every 1m", cfg.Scheduler.Spec)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_CONN_STR", "postgres://legacy/letterly")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "3000")
	t.Setenv("ENV", "production")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REALTIME_BROKER", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://legacy/letterly", cfg.PostgresURL)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "redis", cfg.Realtime.Broker)
	assert.True(t, cfg.IsProduction())
}

func TestLoadYAMLFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nscheduler:\n  spec: \"@every 5m\"\n"), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("DATABASE_URL", "postgres://localhost/letterly")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "@every 5m", cfg.Scheduler.Spec)
}

func TestLoadMissingRequired(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_CONN_STR", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestValidateBroker(t *testing.T) {
	cfg := defaultConfig()
	cfg.PostgresURL = "postgres://x"
	cfg.JWTSecret = "s"

	cfg.Realtime.Broker = "nats"
	assert.ErrorContains(t, cfg.Validate(), "NATS_URL")

	cfg.Realtime.Broker = "kafka"
	assert.ErrorContains(t, cfg.Validate(), "unknown REALTIME_BROKER")

	cfg.Realtime.Broker = "local"
	assert.NoError(t, cfg.Validate())
}
