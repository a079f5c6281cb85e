package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("title added", "title", "Berserk")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "title added", rec["msg"])
	assert.Equal(t, "Berserk", rec["title"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "warn", "text").Info("dropped")
	assert.Empty(t, buf.String())

	New(&buf, "debug", "").Debug("kept", "queue", "download")
	assert.Contains(t, buf.String(), "queue=download")
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "pretty")

	logger.Debug("hidden")
	logger.Info("chapter downloaded", "index", 3)

	out := buf.String()
	assert.Contains(t, out, "chapter downloaded")
	assert.Contains(t, out, "index")
	assert.NotContains(t, out, "hidden")
}
