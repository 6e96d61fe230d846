package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("PASSWORD", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.True(t, cfg.Storage.LocalMode())
	assert.False(t, cfg.Auth.Secured())
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RotateBefore())
	assert.Equal(t, time.Hour, cfg.Auth.SweepInterval())
}

func TestLoadSecretFallsBackToPassword(t *testing.T) {
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.Secured())

	t.Setenv("AUTH_JWT_SECRET", "dedicated")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "dedicated", cfg.Auth.JWTSecret)
	assert.Equal(t, "hunter2", cfg.Auth.OwnerPassword)
}

func TestLoadStorageType(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "Redis")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.False(t, cfg.Storage.LocalMode())

	t.Setenv("STORAGE_TYPE", "mongodb")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL_HOURS", "48")
	t.Setenv("AUTH_REFRESH_ROTATE_BEFORE_HOURS", "not-a-number")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 48*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RotateBefore())
	assert.Equal(t, time.Duration(0), cfg.App.RequestTimeout())
	assert.Equal(t, 3, cfg.Redis.DB)

	t.Setenv("REDIS_DB", "x")
	_, err = Load()
	assert.Error(t, err)
}
