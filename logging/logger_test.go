package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestCoordLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf})

	l.WithComponent("selector").WithSession("s-1").WithAgent(42).Info("selected", "count", 2)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "selected", lines[0]["msg"])
	assert.Equal(t, "selector", lines[0]["component"])
	assert.Equal(t, "s-1", lines[0]["session_id"])
	assert.Equal(t, float64(42), lines[0]["agent_id"])
	assert.Equal(t, float64(2), lines[0]["count"])
}

func TestCoordLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestCoordLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Output: &buf})

	LogLLMCall(l, "gpt-4o", time.Millisecond, errors.New("timeout"))
	LogToolCall(l, "search_trends", "web-search-tools", time.Millisecond, nil, "round", 1)
	LogSelection(l, "llm", []int64{2}, true, "parse error")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "LLM call failed", lines[0]["msg"])
	assert.Equal(t, "timeout", lines[0]["error"])
	assert.Equal(t, false, lines[0]["success"])
	assert.Equal(t, "web-search-tools", lines[1]["server"])
	assert.Equal(t, float64(1), lines[1]["round"])
	assert.Equal(t, "WARN", lines[2]["level"])
}

func TestHelpers_AcceptAnyLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	done := StartTimer(l, "recommend", "session_id", "s1")
	done()
	LogSelection(l, "database", []int64{1, 2}, false, "")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Operation completed", lines[0]["msg"])
	assert.Equal(t, "recommend", lines[0]["operation"])
	assert.Equal(t, "s1", lines[0]["session_id"])
	assert.Equal(t, "Agent selection completed", lines[1]["msg"])

	assert.NotPanics(t, func() { LogToolCall(nil, "x", "y", 0, nil) })
}

func TestCoordLogger_WithIsCopy(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Output: &buf})
	_ = base.WithContext("k", "v")
	base.Info("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "k")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l := NewDefaultSlogLogger()
	assert.Same(t, l, OrNoOp(l))
}
