package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"DetOverlay/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, 60, cfg.PredictTimeoutSeconds)
	assert.Equal(t, 8, cfg.HealthTimeoutSeconds)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ListenAddr: ":9999"
BaseURL: "null"
PredictTimeoutSeconds: -1
DefaultConfidence: 0.4
ListLimit: 10
ColorByClass: true
`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, remote.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, int(remote.DefaultPredictTimeout/time.Second), cfg.PredictTimeoutSeconds)

	opts := cfg.sessionOptions()
	assert.InDelta(t, 0.4, opts.Threshold, 1e-9)
	assert.Equal(t, 10, opts.ListLimit)
	assert.True(t, opts.Style.ColorByClass)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ListenAddr: [unclosed"), 0o644))
	_, err := loadConfig(path)
	assert.Error(t, err)
}
