package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ephemeral/internal/app"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, "release", cfg.Mode)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 54*time.Second, cfg.PingPeriod)
	require.Equal(t, 15*time.Minute, cfg.Room.TTL)
	require.Equal(t, 60*time.Second, cfg.Room.WarningBefore)
	require.Equal(t, 20*time.Second, cfg.Room.GracePeriod)
	require.Equal(t, 5*time.Second, cfg.Room.SweepInterval)
	require.Equal(t, 50, cfg.Room.HistoryLimit)
	require.Equal(t, 1000, cfg.Chat.MaxTextLength)
	require.Equal(t, "redis", cfg.Store.Driver)
	require.Equal(t, "room:", cfg.Store.Prefix)

	opts := cfg.RoomOptions()
	require.Equal(t, 15*time.Minute, opts.TTL)
	require.Equal(t, 2*time.Second, opts.StoreTimeout)
	require.Equal(t, 50, cfg.StoreOptions().HistoryLimit)
	require.Equal(t, app.SimplePolicy{}, cfg.Policy())
}

func TestLoadFile_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := `
mode: debug
port: 9090
room:
  ttl: 30m
  grace_period: 5s
  slow_consumer: drop
store:
  driver: badger
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("EPHEMERAL_PORT", "9191")
	t.Setenv("EPHEMERAL_STORE_ENCRYPTION_KEY", "s3cret")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Mode)
	require.Equal(t, 9191, cfg.Port)
	require.Equal(t, 30*time.Minute, cfg.Room.TTL)
	require.Equal(t, 5*time.Second, cfg.Room.GracePeriod)
	require.Equal(t, "badger", cfg.Store.Driver)
	require.Equal(t, "s3cret", cfg.Store.EncryptionKey)
	require.Equal(t, app.DropPolicy{}, cfg.Policy())
}

func TestValidate(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	bad := *cfg
	bad.Room.WarningBefore = bad.Room.TTL
	require.ErrorContains(t, bad.Validate(), "room.warning_before")

	bad = *cfg
	bad.Room.GracePeriod = 0
	require.ErrorContains(t, bad.Validate(), "room.grace_period must be positive")

	bad = *cfg
	bad.Store.Driver = "sqlite"
	require.ErrorContains(t, bad.Validate(), "store.driver")

	bad = *cfg
	bad.Room.SlowConsumer = "ignore"
	require.ErrorContains(t, bad.Validate(), "room.slow_consumer")
}
