package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.Leaderboard.Driver)
	assert.Equal(t, filepath.Join(cfg.DataDir, "leaderboard.db"), cfg.Leaderboard.DSN)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.IdleTTL)
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hanoi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
log_mode: ModeProd
data_dir: /tmp/hanoi
kv:
  in_memory: true
leaderboard:
  driver: Remote
  url: http://board:8080
  retries: 99
sessions:
  max: 5
  idle_ttl: 10s
submit_limit:
  per_minute: 6
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, LogProd, cfg.LogMode)
	assert.True(t, cfg.KV.InMemory)
	assert.Equal(t, DriverRemote, cfg.Leaderboard.Driver)
	assert.Equal(t, 10, cfg.Leaderboard.Retries)
	assert.Equal(t, 5, cfg.Sessions.Max)
	assert.Equal(t, time.Minute, cfg.Sessions.IdleTTL, "idle ttl has a one minute floor")
	assert.Equal(t, 6, cfg.SubmitLimit.PerMinute)
	assert.Equal(t, 5, cfg.SubmitLimit.Burst, "unset fields keep defaults")
}

func TestRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "nope: 1\n",
		"bad driver":     "leaderboard: {driver: redis}\n",
		"remote no url":  "leaderboard: {driver: remote}\n",
		"bad log mode":   "log_mode: loud\n",
		"malformed yaml": "addr: [\n",
	}
	for name, body := range cases {
		cfg := Default()
		err := cfg.Overlay([]byte(body))
		if err == nil {
			err = cfg.Validate()
		}
		assert.Error(t, err, name)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestOverridesBeforeValidate(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", func(c *Config) {
		c.DataDir = dir
		c.Leaderboard.Driver = "SQLite"
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "leaderboard.db"), cfg.Leaderboard.DSN, "dsn follows the overridden data dir")
	assert.Equal(t, filepath.Join(dir, "kv"), cfg.KVPath())

	_, err = Load("", func(c *Config) { c.Leaderboard.Driver = DriverRemote })
	assert.Error(t, err)
}
