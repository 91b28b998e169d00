package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "missing.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 22044, cfg.Backend.CustomServerPort)
	assert.Equal(t, 300*time.Millisecond, cfg.Backend.MoveInterval)
	assert.Equal(t, 5*time.Second, cfg.Room.JoinCooldown)
	assert.Equal(t, 10*time.Minute, cfg.Room.GameEndTimeout)
	assert.Empty(t, cfg.ICEServers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "proximity.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
mode: debug
port: 9000
backend:
  custom_server_port: 23000
room:
  game_end_timeout: 30s
ice_servers:
  - urls: ["turn:turn.example.org:3478"]
    username: user
    credential: secret
`), 0o600))
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("PROXIMITY_PORT", "9100")
	t.Setenv("PROXIMITY_ROOM_JOIN_COOLDOWN", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 23000, cfg.Backend.CustomServerPort)
	assert.Equal(t, 30*time.Second, cfg.Room.GameEndTimeout)
	assert.Equal(t, 2*time.Second, cfg.Room.JoinCooldown)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"turn:turn.example.org:3478"}, cfg.ICEServers[0].URLs)
	assert.Equal(t, "secret", cfg.ICEServers[0].Credential)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PROXIMITY_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", "missing.yaml")
	t.Cleanup(func() { os.Unsetenv("PROXIMITY_LOG_LEVEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "missing.yaml")
	t.Setenv("PROXIMITY_PORT", "70000")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid port")
}
