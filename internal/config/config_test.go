package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "ndjson", cfg.Format)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "3.7.9", cfg.Environment.MinimumVersion)
	assert.Equal(t, []string{"python3", "python"}, cfg.Environment.Candidates)
	assert.Equal(t, 10*time.Second, cfg.Server.SettleTimeout)
	assert.Equal(t, 2*time.Second, cfg.Debug.SettleDelay)
	assert.Equal(t, 30*time.Second, cfg.Heartbeat.Interval)
	assert.Equal(t, []string{"*.codex", "*.ipynb"}, cfg.Workspace.DocumentGlobs)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "ansup.yaml")
	content := `
format: text
verbose: true
environment:
  override: /opt/tool/bin/python3
  minimum_version: "3.9.0"
debug:
  enabled: true
  host: 127.0.0.1
  port: 5678
heartbeat:
  interval: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Format)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "/opt/tool/bin/python3", cfg.Environment.Override)
	assert.Equal(t, "3.9.0", cfg.Environment.MinimumVersion)
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Debug.Host)
	assert.Equal(t, 5678, cfg.Debug.Port)
	assert.Equal(t, 10*time.Second, cfg.Heartbeat.Interval)
	// Untouched keys keep their defaults
	assert.Equal(t, []string{"python3", "python"}, cfg.Environment.Candidates)
	assert.Equal(t, 2*time.Second, cfg.Debug.SettleDelay)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)
		t.Setenv("HOME", tmpDir)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "ndjson", cfg.Format)
	})
}

func TestFingerprintTracksNamespaceChanges(t *testing.T) {
	v := viper.New()
	v.Set("debug.enabled", false)
	v.Set("format", "ndjson")

	before := fingerprint(v, "debug")
	v.Set("format", "text")
	assert.Equal(t, before, fingerprint(v, "debug"), "unrelated keys must not change the namespace fingerprint")

	v.Set("debug.enabled", true)
	assert.NotEqual(t, before, fingerprint(v, "debug"))

	assert.Empty(t, fingerprint(v, "no_such_namespace"))
}
