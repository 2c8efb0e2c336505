package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestReadConfigDefaultsAndEnv(t *testing.T) {
	dir := writeConfig(t, `
database:
  host: db.internal
realtime:
  enabled: true
`)
	t.Setenv("SIMWARD_SERVER_PORT", "9090")

	cfg, err := ReadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8081, cfg.Realtime.Port)
	assert.Equal(t, 24, cfg.Authentication.SessionTTLHours)
	assert.Equal(t, "casbin_model.conf", cfg.Authorization.CasbinModelPath)
}

func TestReadConfigValidation(t *testing.T) {
	dir := writeConfig(t, `
database:
  host: db
server:
  port: 8081
realtime:
  enabled: true
  port: 8081
authentication:
  encryption_key: "abc"
`)
	_, err := ReadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "realtime.port")
	assert.Contains(t, err.Error(), "encryption_key")
}

func TestReadConfigMissingFile(t *testing.T) {
	t.Setenv("SIMWARD_DATABASE_HOST", "")
	_, err := ReadConfig(t.TempDir())
	assert.Error(t, err)
}
