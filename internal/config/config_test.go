package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncer/internal/config"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DSN)
	assert.True(t, cfg.FullSync)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadReadsTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syncer.toml")
	require.NoError(t, os.WriteFile(path, []byte("dsn = \"user:pass@tcp(127.0.0.1:3306)/shop\"\nfull_sync = false\nlog_level = \"debug\"\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "user:pass@tcp(127.0.0.1:3306)/shop", cfg.DSN)
	assert.False(t, cfg.FullSync)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyFlagOverridesTakesPrecedence(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.ApplyFlagOverrides("flag-dsn", true, false, "warn")
	assert.Equal(t, "flag-dsn", cfg.DSN)
	assert.False(t, cfg.FullSync)
	assert.Equal(t, "warn", cfg.LogLevel)
}
