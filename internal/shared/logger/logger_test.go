package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Entry {
	t.Helper()
	var out []Entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" WARN ", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLoggerFillsRequiredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("tracking-service", LevelDebug, &buf)

	log.Info(Entry{Action: "order_accepted", Message: "ok", OrderID: "o-1"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "tracking-service", e.Service)
	assert.Equal(t, "order_accepted", e.Action)
	assert.Equal(t, "o-1", e.OrderID)
	assert.NotEmpty(t, e.Timestamp)
	assert.Contains(t, e.Additional, "caller")
}

func TestLoggerMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("svc", LevelWarn, &buf)

	log.Debug(Entry{Action: "dropped"})
	log.Info(Entry{Action: "dropped"})
	log.Warn(Entry{Action: "kept"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Action)
}

func TestWithConnectionMergesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("svc", LevelDebug, &buf)

	log.WithConnection("c-1", "o-9").Warn(Entry{Action: "x", Additional: map[string]any{"k": "v"}})
	log.WithFields(map[string]any{"driver_id": "d-1", "level": "hijack"}).Info(Entry{Action: "y"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "c-1", entries[0].ConnID)
	assert.Equal(t, "o-9", entries[0].OrderID)
	assert.Equal(t, "v", entries[0].Additional["k"])

	assert.Equal(t, "d-1", entries[1].Additional["driver_id"])
	assert.Equal(t, "INFO", entries[1].Level)
	assert.NotContains(t, entries[1].Additional, "level")
}
