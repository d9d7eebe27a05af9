package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"SERVER_PORT", "APP_ENV", "LOG_LEVEL", "DB_DRIVER", "DB_DSN", "DB_USER", "DB_PASSWORD",
	"DB_HOST", "DB_PORT", "DB_NAME", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_KEY_PREFIX",
	"ROOM_IDLE_MINUTES", "MAX_IMAGE_SIZE_MB", "ALLOWED_IMAGE_TYPES", "ROOM_LOCK_TIMEOUT",
	"MEDIA_ROOT", "MEDIA_URL", "PURGE_SCHEDULE", "CORS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, "chat:", cfg.KeyPrefix)
	assert.Equal(t, "/media/", cfg.MediaURL)
	assert.False(t, cfg.UseRedis())
	assert.Empty(t, cfg.CORSAllowedOrigins)

	s := cfg.Settings()
	assert.Equal(t, 120*time.Minute, s.IdleThreshold)
	assert.Equal(t, int64(5*1024*1024), s.MaxImageBytes)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/gif", "image/webp"}, s.AllowedImageTypes)
	assert.Equal(t, 5*time.Second, s.LockTimeout)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("ROOM_IDLE_MINUTES", "30")
	t.Setenv("MAX_IMAGE_SIZE_MB", "2")
	t.Setenv("ALLOWED_IMAGE_TYPES", " image/png , image/gif ")
	t.Setenv("MEDIA_URL", "/uploads")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("ROOM_LOCK_TIMEOUT", "750ms")
	t.Setenv("LOG_LEVEL", "loud")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "/uploads/", cfg.MediaURL)
	assert.True(t, cfg.UseRedis())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)

	s := cfg.Settings()
	assert.Equal(t, 30*time.Minute, s.IdleThreshold)
	assert.Equal(t, int64(2*1024*1024), s.MaxImageBytes)
	assert.Equal(t, []string{"image/png", "image/gif"}, s.AllowedImageTypes)
	assert.Equal(t, 750*time.Millisecond, s.LockTimeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"DB_DRIVER":         "sqlite",
		"ROOM_IDLE_MINUTES": "0",
		"MAX_IMAGE_SIZE_MB": "five",
		"ROOM_LOCK_TIMEOUT": "soon",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
