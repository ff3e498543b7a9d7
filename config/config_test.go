package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReaderOverridesDefaults(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(`
[Storage]
URL = "postgres://indexer@db:5432/near"
MaxRowsPerStatement = 250

[Retry]
Base = "50ms"
Attempts = 3

[Indexer]
Concurrency = 4
`), DefaultConf())
	require.NoError(t, err)

	assert.Equal(t, "postgres://indexer@db:5432/near", cfg.Storage.URL)
	assert.Equal(t, 250, cfg.Storage.MaxRowsPerStatement)
	assert.Equal(t, 20, cfg.Storage.PoolSize)
	assert.Equal(t, Duration(50*time.Millisecond), cfg.Retry.Base)
	assert.Equal(t, Duration(120*time.Second), cfg.Retry.Max)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 4, cfg.Indexer.Concurrency)
	assert.EqualValues(t, 83030086, cfg.Indexer.StartHeight)
}

func TestFromReaderRejectsBadDuration(t *testing.T) {
	_, err := FromReader(strings.NewReader("[Retry]\nBase = \"soon\"\n"), DefaultConf())
	assert.Error(t, err)
}

func TestFromFileMissingGivesDefaults(t *testing.T) {
	cfg, err := FromFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConf(), cfg)
}

func TestEnsureExistsWritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, EnsureExists(path))
	// A second call leaves the file alone.
	require.NoError(t, EnsureExists(path))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConf(), cfg)
}

func TestDatabaseURL(t *testing.T) {
	c := StorageConf{URLEnv: "LAKEFLOW_CONFIG_TEST_DB", URL: "postgres://fallback"}
	assert.Equal(t, "postgres://fallback", c.DatabaseURL())

	t.Setenv("LAKEFLOW_CONFIG_TEST_DB", "postgres://from-env")
	assert.Equal(t, "postgres://from-env", c.DatabaseURL())
}
