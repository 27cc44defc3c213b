package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DATABASE_URL", "NATS_URL", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/feedswitch")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.Addr)
	require.Equal(t, "postgres://localhost/feedswitch", cfg.DatabaseURL)
	require.Empty(t, cfg.NATSURL)
	require.Equal(t, 100, cfg.RateLimitMax)
	require.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/feedswitch")
	t.Setenv("PORT", "8080")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	require.Equal(t, 5, cfg.RateLimitMax)
	require.Equal(t, 30*time.Second, cfg.RateLimitWindow)
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database url", env: map[string]string{}},
		{name: "bad rate limit max", env: map[string]string{
			"DATABASE_URL":   "postgres://localhost/feedswitch",
			"RATE_LIMIT_MAX": "lots",
		}},
		{name: "zero rate limit max", env: map[string]string{
			"DATABASE_URL":   "postgres://localhost/feedswitch",
			"RATE_LIMIT_MAX": "0",
		}},
		{name: "bad rate limit window", env: map[string]string{
			"DATABASE_URL":      "postgres://localhost/feedswitch",
			"RATE_LIMIT_WINDOW": "soon",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
