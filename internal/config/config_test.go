package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
server:
  address: ":9090"
  api_key: secret
database:
  path: `+filepath.Join(dir, "data", "test.db")+`
redis:
  enabled: true
  address: localhost:6379
  cache_ttl_seconds: 120
booking:
  attempts_per_minute: 10
  attempt_burst: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 10, cfg.Booking.AttemptsPerMinute)

	// Database directory is created on load.
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	path := writeConfig(t, `server: {}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "data/loungebook.db", cfg.Database.Path)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("LOUNGEBOOK_API_KEY", "from-env")
	path := writeConfig(t, `
server:
  api_key: ${LOUNGEBOOK_API_KEY}
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Server.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
