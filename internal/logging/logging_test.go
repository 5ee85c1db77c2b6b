package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(""))
	assert.Equal(t, slog.LevelWarn, ParseLevel("verbose"))
}

func TestNewWritesJSONToConsoleAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "librarydesk.log")

	logger, cleanup, err := New("info", path, &console)
	require.NoError(t, err)

	logger.Info("borrowed", "qr_code", "Q123")
	logger.Debug("hidden")
	cleanup()

	var line map[string]any
	require.NoError(t, json.Unmarshal(console.Bytes(), &line))
	assert.Equal(t, "borrowed", line["msg"])
	assert.Equal(t, "Q123", line["qr_code"])
	assert.Equal(t, "librarydesk", line["app"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, console.String(), string(data))
}

func TestNewWithoutWriters(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger, cleanup, err := New("debug", "", nil)
	require.NoError(t, err)
	defer cleanup()
	logger.Info("dropped")
}
