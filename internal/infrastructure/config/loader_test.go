package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sift/assets"
)

func TestLoadWritesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sift", "config.yaml")
	t.Setenv("XDG_DATA_HOME", filepath.Join(t.TempDir(), "data"))

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, assets.DefaultConfigYAML, written)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Dir(path), cfg.Paths.ConfigDir)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "plugins"), cfg.Paths.PluginsDir)
	assert.Equal(t, 5*time.Second, cfg.Query.Timeout)
	require.Len(t, cfg.Plugins, 2)
	assert.Equal(t, "calc", cfg.Plugins[1].Name)
	assert.Equal(t, "=", cfg.Plugins[1].Prefix)
	assert.Equal(t, 6, cfg.Plugins[1].Config["precision"])
}

func TestLoadHydratesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query:\n  timeout: 250ms\nplugins:\n  - name: apps\n"), 0o600))
	t.Setenv("SIFT_LOG_LEVEL", "debug")

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Query.Timeout)
	assert.Equal(t, "127.0.0.1:7547", cfg.Instance.Addr)
	assert.Equal(t, "127.0.0.1:7548", cfg.Frontend.Addr)
}

func TestEnvOverridePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv("SIFT_CONFIG", path)
	l := NewFileLoader("")
	assert.Equal(t, path, l.Path())
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugins: [\n"), 0o600))
	_, err := NewFileLoader(path).Load(context.Background())
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Plugins)
	assert.True(t, cfg.Frontend.Enabled)
}
