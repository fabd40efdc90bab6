package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToml = `
[development]
host = "localhost"
port = 9000
log_level = "trace"
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "edgetrack"
redis_host = "localhost"
redis_port = "6379"
analytics_refresh_interval = "10s"
streak_timezone = "UTC"

[production]
host = "0.0.0.0"
port = 1988
log_level = "info"
logs_path = "/var/log/edgetrack/service"
checkpoint_ttl = "72h"
history_limit = 1000
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testToml), 0o600))
	return path
}

func TestLoad_Development(t *testing.T) {
	cfg, err := Load("dev", writeConfig(t))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "edgetrack", cfg.PostgresDBName)
	assert.Equal(t, 10*time.Second, cfg.AnalyticsRefreshInterval.Duration)
	// defaults
	assert.Equal(t, 48*time.Hour, cfg.CheckpointTTL.Duration)
	assert.Equal(t, 500, cfg.HistoryLimit)
	assert.Equal(t, 120, cfg.MutationsAllowedPerMin)

	loc, err := cfg.StreakLocation()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_Production(t *testing.T) {
	cfg, err := Load("production", writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, 1988, cfg.Port)
	assert.Equal(t, 72*time.Hour, cfg.CheckpointTTL.Duration)
	assert.Equal(t, 1000, cfg.HistoryLimit)
	assert.Equal(t, 5*time.Second, cfg.AnalyticsRefreshInterval.Duration)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("staging", writeConfig(t))
	assert.ErrorContains(t, err, "unknown env")

	_, err = Load("dev", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	emptyPath := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(emptyPath, []byte("[production]\nport = 1\n"), 0o600))
	_, err = Load("dev", emptyPath)
	assert.ErrorContains(t, err, "no config section")

	badPath := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(badPath, []byte("[development]\ncheckpoint_ttl = \"soon\"\n"), 0o600))
	_, err = Load("dev", badPath)
	assert.Error(t, err)
}
