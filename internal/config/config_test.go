package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "pgx", cfg.DatabaseDriver)
	require.Equal(t, 10, cfg.QRDefaultValidity)
	require.Equal(t, 30*time.Minute, cfg.CheckInEarlyWindow)
	require.Equal(t, 15*time.Minute, cfg.CheckInLateAfter)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.False(t, cfg.UsesRedis())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("QUEUE_BACKEND", "redis")
	t.Setenv("QR_DEFAULT_VALIDITY", "5")
	t.Setenv("CHECKIN_LATE_AFTER", "20m")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, 5, cfg.QRDefaultValidity)
	require.Equal(t, 20*time.Minute, cfg.CheckInLateAfter)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.True(t, cfg.UsesRedis())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"driver":   {"DATABASE_DRIVER", "mysql"},
		"queue":    {"QUEUE_BACKEND", "kafka"},
		"lock":     {"LOCK_BACKEND", "etcd"},
		"validity": {"QR_DEFAULT_VALIDITY", "0"},
		"too long": {"QR_DEFAULT_VALIDITY", "10081"},
		"duration": {"ACCESS_TTL", "soon"},
		"window":   {"CHECKIN_EARLY_WINDOW", "0s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestUsesRedisWhenStatsCacheEnabled(t *testing.T) {
	cfg := App{StatsCacheTTL: time.Minute}
	require.True(t, cfg.UsesRedis())
}
