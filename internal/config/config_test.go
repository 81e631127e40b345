package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CB_STR", "value")
	t.Setenv("CB_INT", "42")
	t.Setenv("CB_BAD_INT", "forty")
	t.Setenv("CB_FLOAT", "0.75")
	t.Setenv("CB_DUR", "90m")

	assert.Equal(t, "value", GetEnv("CB_STR", "x"))
	assert.Equal(t, "x", GetEnv("CB_MISSING", "x"))
	assert.Equal(t, 42, GetIntEnv("CB_INT", 1))
	assert.Equal(t, 1, GetIntEnv("CB_BAD_INT", 1))
	assert.Equal(t, 0.75, GetFloatEnv("CB_FLOAT", 0))
	assert.Equal(t, 90*time.Minute, GetDurationEnv("CB_DUR", time.Hour))
	assert.Equal(t, time.Hour, GetDurationEnv("CB_MISSING", time.Hour))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REPORT_REFRESH_INTERVAL", "")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg := Load()

	assert.Equal(t, 4*time.Hour, cfg.ReportRefreshInterval)
	assert.Equal(t, 1.8, cfg.AnomalyThreshold)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 50, cfg.CoverLetterMinLength)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CB_FROM_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CB_FROM_DOTENV") })

	assert.True(t, LoadEnv(path))
	assert.Equal(t, "loaded", os.Getenv("CB_FROM_DOTENV"))

	assert.False(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
