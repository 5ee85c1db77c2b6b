package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LIBRARYDESK_DATA_DIR", dir)
	t.Setenv("LIBRARYDESK_LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.APIBaseURL)
	assert.Equal(t, filepath.Join(dir, "librarydesk.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "reports"), cfg.ReportDir)
	assert.Equal(t, "he", cfg.Language)
	assert.Equal(t, 60*time.Second, cfg.StatusInterval)
	assert.Equal(t, int64(1<<20), cfg.QRResizeThreshold)
	assert.Equal(t, 1200, cfg.QRMaxDimension)
	assert.Equal(t, 8, cfg.ReminderConcurrency)
	assert.False(t, cfg.BatchReminders)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LIBRARYDESK_DATA_DIR", t.TempDir())
	t.Setenv("LIBRARYDESK_API_URL", "https://library.example.org")
	t.Setenv("LIBRARYDESK_DB_PATH", "/custom/db.sqlite")
	t.Setenv("LIBRARYDESK_LANGUAGE", "en")
	t.Setenv("LIBRARYDESK_STATUS_INTERVAL", "15s")
	t.Setenv("LIBRARYDESK_BATCH_REMINDERS", "true")
	t.Setenv("LIBRARYDESK_CLAUDE_API_KEY", "sk-test123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://library.example.org", cfg.APIBaseURL)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 15*time.Second, cfg.StatusInterval)
	assert.True(t, cfg.BatchReminders)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LIBRARYDESK_DATA_DIR", dir)
	t.Setenv("LIBRARYDESK_LANGUAGE", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(
		"api_url: http://books.local:5000\nlanguage: en\nreminder_concurrency: 0\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://books.local:5000", cfg.APIBaseURL)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 1, cfg.ReminderConcurrency)
}

func TestLoadLanguageFromLocale(t *testing.T) {
	t.Setenv("LIBRARYDESK_DATA_DIR", t.TempDir())
	t.Setenv("LIBRARYDESK_LANGUAGE", "fr")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "en_US.UTF-8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Language)
}
