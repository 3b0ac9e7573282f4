package config

import (
	"encoding/base64"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "SESSION_KEY", "CSRF_KEY", "SECRET_KEY", "API_TOKEN_TTL", "MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8585")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8585", cfg.Port)
	assert.Len(t, cfg.SessionKey, 32)
	assert.Len(t, cfg.CSRFKey, 32)
	assert.NotEmpty(t, cfg.SecretKey)
	assert.Equal(t, 24*time.Hour, cfg.APITokenTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.False(t, cfg.AdminConfigured())
}

func TestLoadFromEnv(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")
	t.Setenv("SESSION_KEY", key)
	t.Setenv("CSRF_KEY", key)
	t.Setenv("SECRET_KEY", "signing-secret")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "secret123")
	t.Setenv("ORDER_REQUIRE_ADDRESS", "true")
	t.Setenv("ORDER_RATE_WINDOW", "30s")
	t.Setenv("API_TOKEN_TTL", "1h")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://shop@localhost/shop", cfg.DatabaseURL)
	assert.Equal(t, []byte(strings.Repeat("k", 32)), cfg.SessionKey)
	assert.Equal(t, "signing-secret", cfg.SecretKey)
	assert.True(t, cfg.AdminConfigured())
	assert.True(t, cfg.OrderRequireAddress)
	assert.Equal(t, 30*time.Second, cfg.OrderRateWindow)
	assert.Equal(t, time.Hour, cfg.APITokenTTL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadRejectsShortKeysAndBadPort(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	t.Setenv("SESSION_KEY", short)
	t.Setenv("CSRF_KEY", "not base64!")
	t.Setenv("PORT", "http")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Len(t, cfg.SessionKey, 32)
	assert.NotEqual(t, []byte("too-short"), cfg.SessionKey)
	assert.Len(t, cfg.CSRFKey, 32)
	assert.Equal(t, "8585", cfg.Port)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("API_TOKEN_TTL", "forever")

	_, err := Load()
	assert.Error(t, err)
}
