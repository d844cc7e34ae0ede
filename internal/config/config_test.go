package config

import (
	"testing"
	"time"

	"github.com/cyp0633/caldora/internal/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

var envKeys = []string{
	"PORT", "REALM", "CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
	"DATABASE_TYPE", "DATABASE_PATH", "DATABASE_URL", "STORE_TIMEOUT",
	"CONCURRENCY_MODE", "REDIS_ENABLED", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOCK_TTL",
	"JWT_SECRET", "TOKEN_TTL", "TOMBSTONE_RETENTION", "PURGE_SCHEDULE",
}

func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c := Load()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "caldora", c.Realm)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.Equal(t, "sqlite", c.DatabaseType)
	assert.Equal(t, "./data/caldora.db", c.DatabasePath)
	assert.Equal(t, 5*time.Second, c.StoreTimeout)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.Equal(t, 720*time.Hour, c.TombstoneRetention)
	assert.Equal(t, "@hourly", c.PurgeSchedule)
	assert.Equal(t, guard.ModeStrict, c.Mode())
	assert.False(t, c.RedisEnabled)

	// JWT_SECRET has no default.
	assert.Error(t, c.Validate())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_TYPE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/caldora")
	t.Setenv("CONCURRENCY_MODE", "permissive")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JWT_SECRET", validSecret)

	c := Load()
	require.NoError(t, c.Validate())
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
	assert.Equal(t, "postgres", c.DatabaseType)
	assert.Equal(t, guard.ModePermissive, c.Mode())
	assert.Equal(t, 250*time.Millisecond, c.StoreTimeout)
	assert.True(t, c.RedisEnabled)
	assert.Equal(t, 3, c.RedisDB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"valid", map[string]string{}, ""},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"bad port", map[string]string{"PORT": "99999"}, "PORT"},
		{"unknown database", map[string]string{"DATABASE_TYPE": "mysql"}, "DATABASE_TYPE"},
		{"postgres without url", map[string]string{"DATABASE_TYPE": "postgres"}, "DATABASE_URL"},
		{"unknown mode", map[string]string{"CONCURRENCY_MODE": "yolo"}, "CONCURRENCY_MODE"},
		{"unparseable timeout", map[string]string{"STORE_TIMEOUT": "soon"}, "STORE_TIMEOUT"},
		{"negative timeout", map[string]string{"STORE_TIMEOUT": "-1s"}, "STORE_TIMEOUT"},
		{"bad redis db", map[string]string{"REDIS_ENABLED": "1", "REDIS_DB": "42"}, "REDIS_DB"},
		{"bad cron", map[string]string{"PURGE_SCHEDULE": "every tuesday"}, "PURGE_SCHEDULE"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"memory database", map[string]string{"DATABASE_TYPE": "memory"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", validSecret)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := Load().Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
