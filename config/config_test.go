package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 20*time.Second, cfg.PageTimeout)
	assert.Equal(t, 64, cfg.MinCharDensity)
	assert.Equal(t, []string{"eng"}, cfg.OCRLanguages)
	assert.Equal(t, 300.0, cfg.RasterDPI)
	assert.True(t, cfg.AnnotationEnabled)
	assert.False(t, cfg.Sequential)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drawcheck.yaml")
	body := []byte("log_level: debug\npage_timeout: 5s\nraster_dpi: 150\nsequential: true\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.PageTimeout)
	assert.Equal(t, 150.0, cfg.RasterDPI)
	assert.True(t, cfg.Sequential)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout, "unset keys keep defaults")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DRAWCHECK_LOG_LEVEL", "warn")
	t.Setenv("DRAWCHECK_PAGE_TIMEOUT", "10s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.PageTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadTimeouts(t *testing.T) {
	t.Setenv("DRAWCHECK_PAGE_TIMEOUT", "5m")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds request_timeout")
}

func TestLoadRejectsBadDPI(t *testing.T) {
	t.Setenv("DRAWCHECK_RASTER_DPI", "10")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raster_dpi")
}
