package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, ":7070", cfg.Sync.Addr)
	assert.Equal(t, "https://it-link.ru/test/images.txt", cfg.Manifest.URL)
	assert.Equal(t, 100, cfg.Cache.FullCapacity)
	assert.Equal(t, 200, cfg.Cache.ThumbnailCapacity)
	assert.Equal(t, 80, cfg.Cache.ThumbnailQuality)
	assert.Zero(t, cfg.Fetch.Timeout)
	assert.EqualValues(t, 32<<20, cfg.Fetch.MaxBytes)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTDuration)
	assert.True(t, filepath.IsAbs(cfg.Cache.Root) || cfg.Cache.Root[0] == '.')
	assert.NotContains(t, cfg.Database.Path, "~")
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "imagehub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9999"
cache:
  root: /tmp/imagehub-test
  full_capacity: 7
fetch:
  timeout: 5s
`), 0o644))

	t.Setenv("IMAGEHUB_CACHE_THUMBNAIL_CAPACITY", "9")
	t.Setenv("IMAGEHUB_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/imagehub-test", cfg.Cache.Root)
	assert.Equal(t, 7, cfg.Cache.FullCapacity)
	assert.Equal(t, 9, cfg.Cache.ThumbnailCapacity)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("IMAGEHUB_LOGGING_FORMAT", "xml")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_BadQuality(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("IMAGEHUB_CACHE_FULL_QUALITY", "101")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "component", "test")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "test", line["component"])
}
