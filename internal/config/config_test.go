package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("BCRYPT_COST", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "test-secret", cfg.JWTSecret)
	require.Equal(t, DefaultAccessTTL, cfg.AccessTTL)
	require.Equal(t, DriverMySQL, cfg.StoreDriver)
	require.Equal(t, bcrypt.DefaultCost, cfg.BcryptCost)
	require.GreaterOrEqual(t, cfg.HashWorkers, 1)
	require.Equal(t, ":"+cfg.Port, cfg.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ACCESS_TOKEN_TTL", "90")
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("USER_CACHE_TTL", "1m")
	t.Setenv("EVENTS_ENABLED", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, cfg.AccessTTL)
	require.Equal(t, DriverMongo, cfg.StoreDriver)
	require.Equal(t, 4, cfg.BcryptCost)
	require.Equal(t, "cache:6380", cfg.Redis.Addr)
	require.Equal(t, time.Minute, cfg.UserCache.TTL)
	require.True(t, cfg.Events.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "sqlite"}},
		{"negative ttl", map[string]string{"JWT_SECRET": "s", "ACCESS_TOKEN_TTL": "-5m"}},
		{"cost too high", map[string]string{"JWT_SECRET": "s", "BCRYPT_COST": "40"}},
		{"no workers", map[string]string{"JWT_SECRET": "s", "HASH_WORKERS": "0"}},
		{"zero request timeout", map[string]string{"JWT_SECRET": "s", "REQUEST_TIMEOUT": "0"}},
		{"negative shutdown timeout", map[string]string{"JWT_SECRET": "s", "SHUTDOWN_TIMEOUT": "-1s"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingSecretSentinel(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.ErrorIs(t, err, ErrMissingSecret)
}
