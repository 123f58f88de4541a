package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8001", cfg.ServerURL)
	assert.Equal(t, 8, cfg.SendTimeoutSec)
	assert.Equal(t, 10, cfg.LocationTimeoutSec)
	assert.Equal(t, ProviderOff, cfg.LocationProvider)
	assert.Equal(t, "@every 1m", cfg.QueueFlushSchedule)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_url": "https://wache.example.de",
		"theme": "light",
		"location_provider": "fixed",
		"fixed_latitude": 52.402,
		"fixed_longitude": 7.297
	}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://wache.example.de", cfg.ServerURL)
	assert.Equal(t, "light", cfg.Theme)
	assert.Equal(t, ProviderFixed, cfg.LocationProvider)
	assert.InDelta(t, 52.402, cfg.FixedLatitude, 1e-9)
	assert.Equal(t, 8, cfg.SendTimeoutSec, "unset fields keep their defaults")
}

func TestLoadRejectsBrokenJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STADTWACHE_SERVER", "https://env.example.de")
	t.Setenv("STADTWACHE_LOG_LEVEL", "debug")
	t.Setenv("STADTWACHE_SEND_TIMEOUT_SEC", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.de", cfg.ServerURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.SendTimeoutSec)
}

func TestEnvIgnoresUnparsableTimeout(t *testing.T) {
	t.Setenv("STADTWACHE_SEND_TIMEOUT_SEC", "soon")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.SendTimeoutSec)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := Default()
	cfg.Theme = "light"
	cfg.ServerURL = "https://wache.example.de"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "light", loaded.Theme)
	assert.Equal(t, "https://wache.example.de", loaded.ServerURL)
}

func TestQueuePath(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/var/lib/stadtwache"
	assert.Equal(t, filepath.Join("/var/lib/stadtwache", "alert-queue.db"), cfg.QueuePath())
}
