package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/predictera-console/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "gateway").Info("refreshed", "status", 200)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "refreshed", rec["msg"])
	assert.Equal(t, "gateway", rec["component"])
	assert.EqualValues(t, 200, rec["status"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("poll failed", "attempt", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"poll failed\"")
	assert.Contains(t, out, "attempt=2")
}

func TestColorHandler(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "debug", Format: "color"}, &buf)

	logger.With("component", "session").Debug("send started", "epoch", 3)
	logger.WithGroup("req").Error("request failed", "path", "/api/machines")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], "DBG send started")
	assert.Contains(t, lines[0], "component=session")
	assert.Contains(t, lines[0], "epoch=3")

	assert.Contains(t, lines[1], "ERR request failed")
	assert.Contains(t, lines[1], "req.path=/api/machines")
}

func TestColorHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "error", Format: "color"}, &buf)

	logger.Warn("ignored")
	assert.Empty(t, buf.String())
}
