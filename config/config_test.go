package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testJWTSecret)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "birdscout.db", cfg.LocalStore.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 15, cfg.Sync.PollIntervalSeconds)
	assert.Equal(t, 5, cfg.Sync.MaxAttempts)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testJWTSecret)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("PORT", "9090")
	t.Setenv("LOCAL_STORE_PATH", "/tmp/birdscout-test.db")
	t.Setenv("SYNC_MAX_ATTEMPTS", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/tmp/birdscout-test.db", cfg.LocalStore.Path)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
}

func TestLoadConfig_RejectsShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "too-short")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret key")
}

func TestLoadConfig_RequiresSupabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testJWTSecret)
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supabase URL")
}
