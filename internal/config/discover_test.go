package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := DefaultPath()
	assert.Contains(t, path, filepath.Join(".config", "kaizoku", "config.toml"))
}

func TestDefaultPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	assert.Equal(t, "/custom/config/kaizoku/config.toml", DefaultPath())
}

func TestDiscover_KAIZOKU_CONFIG(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[server]"), 0644))

	t.Setenv("KAIZOKU_CONFIG", cfgPath)

	path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, cfgPath, path)
}

func TestDiscover_KAIZOKU_CONFIG_NotFound(t *testing.T) {
	t.Setenv("KAIZOKU_CONFIG", "/nonexistent/config.toml")

	_, err := Discover()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAIZOKU_CONFIG")
}

func TestDiscover_CurrentDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("KAIZOKU_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg"))
	t.Chdir(tmp)

	require.NoError(t, os.WriteFile(filepath.Join(tmp, "config.toml"), []byte("[server]"), 0644))

	path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, "./config.toml", path)
}

func TestDiscover_XDG(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("KAIZOKU_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Chdir(t.TempDir())

	cfgPath := filepath.Join(tmp, "kaizoku", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0755))
	require.NoError(t, os.WriteFile(cfgPath, []byte("[server]"), 0644))

	path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, cfgPath, path)
}
