package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.v)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "builder.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))
	return configFile
}

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		configFile := writeConfig(t, `
cacheDir: /custom/cache
outputDir: /custom/out
concurrency: 12
minimize: true
theme: dark
cssSelectorLimit: 1000
log:
  timestamps: false
modules:
  - name: App
    source: src/App
    pages:
      - index.html
  - name: Lib
    source: src/Lib
    output: dist/Lib
`)

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "/custom/cache", cfg.CacheDir)
		assert.Equal(t, "/custom/out", cfg.OutputDir)
		assert.Equal(t, 12, cfg.Concurrency)
		assert.True(t, cfg.Minimize)
		assert.Equal(t, "dark", cfg.Theme)
		assert.Equal(t, 1000, cfg.CSSSelectorLimit)
		require.NotNil(t, cfg.Log.Timestamps)
		assert.False(t, *cfg.Log.Timestamps)

		require.Len(t, cfg.Modules, 2)
		assert.Equal(t, "App", cfg.Modules[0].Name)
		assert.Equal(t, []string{"index.html"}, cfg.Modules[0].Pages)
		assert.Equal(t, "dist/Lib", cfg.Modules[1].Output)
	})

	t.Run("returns empty config for missing file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "nonexistent.yaml")

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Empty(t, cfg.CacheDir)
		assert.Empty(t, cfg.Modules)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configFile := writeConfig(t, "cacheDir: /file/cache\ntheme: light\n")
		t.Setenv("BUILDER_CACHE_DIR", "/env/cache")
		t.Setenv("BUILDER_THEME", "dark")

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "/env/cache", cfg.CacheDir)
		assert.Equal(t, "dark", cfg.Theme)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		configFile := writeConfig(t, "modules: [\n")

		_, err := NewLoader().Load(configFile)
		assert.Error(t, err)
	})
}

func TestLoaderLoadWithDefaults(t *testing.T) {
	configFile := writeConfig(t, "theme: dark\n")

	cfg, err := NewLoader().LoadWithDefaults(configFile)

	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.Theme)
	assert.Equal(t, DefaultCacheDir, cfg.CacheDir)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
}

func TestBaseDir(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, BaseDir(filepath.Join(dir, "builder.yaml")))
}

func TestConfigFileExists(t *testing.T) {
	configFile := writeConfig(t, "theme: dark\n")

	ok, err := ConfigFileExists(configFile)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ConfigFileExists(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, ok)
}
