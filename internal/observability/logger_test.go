package observability

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestRedactedLogScrubsSecrets(t *testing.T) {
	var buf strings.Builder
	logger := NewLogger(LoggerConfig{Output: &buf}, nil)

	logger.RedactedError("upstream rejected request",
		"header", "Bearer sk-abcdefghijklmnopqrstuvwx",
	)

	out := buf.String()
	assert.NotContains(t, out, "sk-abcdefghijklmnopqrstuvwx")
	assert.Contains(t, out, "REDACTED")
}

func TestWithConversation(t *testing.T) {
	var buf strings.Builder
	logger := NewLogger(LoggerConfig{Output: &buf}, nil)

	logger.WithConversation("u1").Info("turn completed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &entry))
	assert.Equal(t, "u1", entry["conversation_key"])

	buf.Reset()
	entry = nil
	logger.WithConversation("").Info("no key")
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &entry))
	assert.NotContains(t, entry, "conversation_key")
}

func TestTextFormat(t *testing.T) {
	var buf strings.Builder
	logger := NewLogger(LoggerConfig{Format: "text", Output: &buf}, nil)

	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
