package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tautils/internal/errs"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{FileEnv, "LOG_LEVEL", "SQLITE_PATH", "REDIS_ADDR", "SYMBOLS", "LATEST_TTL", "SIGNAL_BUFFER"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "tautils-evaluate", cfg.ServiceName)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "data/candles.db", cfg.SQLitePath)
	require.Equal(t, 10*time.Minute, cfg.LatestTTL)
	require.Equal(t, 256, cfg.SignalBuffer)
	require.False(t, cfg.RedisEnabled())
	require.Empty(t, cfg.ParseSymbols())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tautils.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
sqlite_path: /tmp/bars.db
symbols: "NIFTY, BANKNIFTY,,"
redis_addr: localhost:6379
latest_ttl: 30s
batch_size: 50
`), 0o644))
	t.Setenv(FileEnv, path)
	t.Setenv("SQLITE_PATH", "/var/lib/bars.db")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/var/lib/bars.db", cfg.SQLitePath)
	require.Equal(t, []string{"NIFTY", "BANKNIFTY"}, cfg.ParseSymbols())
	require.True(t, cfg.RedisEnabled())
	require.Equal(t, 2, cfg.RedisDB)
	require.Equal(t, 30*time.Second, cfg.LatestTTL)
	require.Equal(t, 50, cfg.BatchSize)
	require.Equal(t, 256, cfg.SignalBuffer)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(FileEnv, "")

	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load()
	require.ErrorIs(t, err, errs.ErrInvalidParameter)

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BATCH_SIZE", "many")
	_, err = Load()
	require.ErrorIs(t, err, errs.ErrInvalidParameter)

	t.Setenv("BATCH_SIZE", "")
	t.Setenv("LATEST_TTL", "soon")
	_, err = Load()
	require.ErrorIs(t, err, errs.ErrInvalidParameter)

	t.Setenv("LATEST_TTL", "")
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	require.Error(t, err)
}
