package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, StoreMySQL, cfg.StoreDriver)
	assert.Equal(t, RevocationMemory, cfg.RevocationBackend)
	assert.Equal(t, 4, cfg.PasswordMinLength)
	assert.Equal(t, int64(50<<20), cfg.Upload.MaxBytes)
	assert.Contains(t, cfg.Upload.AllowedTypes, "image/png")
	assert.Equal(t, 15*time.Minute, cfg.Upload.URLExpiry)
	assert.Equal(t, "user.events", cfg.Events.Queue)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
	assert.True(t, cfg.Cache.Cacheable("get"))
	assert.False(t, cfg.Cache.Cacheable("POST"))
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "1")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("RATE_LIMIT", "0")
	t.Setenv("RATE_LIMIT_PER", "10ms")
	t.Setenv("UPLOAD_ALLOWED_TYPES", "image/png,application/pdf")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, "cache:6380", cfg.Redis.Address())
	assert.Equal(t, 1, cfg.RateLimit.Limit)
	assert.Equal(t, time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"image/png", "application/pdf"}, cfg.Upload.AllowedTypes)
}

func TestValidate(t *testing.T) {
	base := Config{
		StoreDriver:       StoreMySQL,
		RevocationBackend: RevocationMemory,
		AccessTTLMin:      30,
		RefreshTTLDays:    7,
		S3:                S3Config{Driver: StorageS3},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown store", func(c *Config) { c.StoreDriver = "sqlite" }, "STORE_DRIVER"},
		{"unknown storage", func(c *Config) { c.S3.Driver = "gcs" }, "STORAGE_DRIVER"},
		{"unknown revocation", func(c *Config) { c.RevocationBackend = "etcd" }, "REVOCATION_BACKEND"},
		{"mysql revocation without mysql store", func(c *Config) {
			c.StoreDriver = StoreMemory
			c.RevocationBackend = RevocationMySQL
		}, "requires STORE_DRIVER=mysql"},
		{"zero access ttl", func(c *Config) { c.AccessTTLMin = 0 }, "ACCESS_TOKEN_TTL_MIN"},
		{"negative refresh ttl", func(c *Config) { c.RefreshTTLDays = -1 }, "REFRESH_TOKEN_TTL_DAYS"},
		{"admin email only", func(c *Config) { c.AdminEmail = "root@example.com" }, "ADMIN_PASSWORD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
