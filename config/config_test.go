package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/nashville/pipeline"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, pipeline.DefaultConfig(), cfg.Pipeline())
	assert.Equal(t, 15*time.Minute, cfg.TempTTL())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "nashville.yaml", `
limits:
  max_file_mb: 5
  min_font_size: 6
logging:
  level: debug
storage:
  temp_url: mem://localhost/charts
  ttl: 1h
debug: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Limits.MaxFileMB)
	assert.Equal(t, 6.0, cfg.Limits.MinFontSize)
	assert.Equal(t, 24.0, cfg.Limits.MaxFontSize, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "mem://localhost/charts", cfg.Storage.TempURL)
	assert.Equal(t, time.Hour, cfg.TempTTL())
	assert.True(t, cfg.Pipeline().Debug)
	assert.Equal(t, int64(5*1024*1024), cfg.Pipeline().MaxFileBytes)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	tests := map[string]string{
		"bad yaml":      "limits: [",
		"bad level":     "logging:\n  level: loud\n",
		"bad ttl":       "storage:\n  ttl: soon\n",
		"inverted band": "limits:\n  min_font_size: 30\n",
		"no addr":       "server:\n  addr: \"\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, dir, "c.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NASHVILLE_ADDR", ":9090")
	t.Setenv("NASHVILLE_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("NASHVILLE_TEMP_URL", "mem://localhost/env")
	t.Setenv("NASHVILLE_TEMP_TTL", "30")
	t.Setenv("NASHVILLE_MAX_FILE_MB", "20")
	t.Setenv("NASHVILLE_MIN_TEXT", "10")
	t.Setenv("NASHVILLE_MIN_FONT", "6.5")
	t.Setenv("NASHVILLE_MAX_FONT", "30")
	t.Setenv("NASHVILLE_LOG_LEVEL", "WARN")
	t.Setenv("NASHVILLE_DEBUG", "true")
	t.Setenv("NASHVILLE_HISTORY_DB", "/tmp/history.db")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "mem://localhost/env", cfg.Storage.TempURL)
	assert.Equal(t, 30*time.Minute, cfg.TempTTL())
	assert.Equal(t, 20, cfg.Limits.MaxFileMB)
	assert.Equal(t, 10, cfg.Limits.MinTextChars)
	assert.Equal(t, 6.5, cfg.Limits.MinFontSize)
	assert.Equal(t, 30.0, cfg.Limits.MaxFontSize)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/history.db", cfg.History.DatabasePath)
}

func TestEnvOverrides_Invalid(t *testing.T) {
	for _, name := range []string{"NASHVILLE_MAX_FILE_MB", "NASHVILLE_MIN_FONT", "NASHVILLE_DEBUG"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "lots")
			assert.Error(t, DefaultConfig().applyEnvOverrides())
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "NASHVILLE_ADDR=:7777\n")

	require.NoError(t, os.Unsetenv("NASHVILLE_ADDR"))
	t.Cleanup(func() { _ = os.Unsetenv("NASHVILLE_ADDR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "extra.env", "NASHVILLE_LOG_LEVEL=error\n")
	t.Setenv("NASHVILLE_LOG_LEVEL", "debug")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "debug", os.Getenv("NASHVILLE_LOG_LEVEL"))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := DefaultConfig()
	cfg.Server.Addr = ":1234"
	cfg.History.DatabasePath = "history.db"
	path := filepath.Join(dir, "nested", "nashville.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
