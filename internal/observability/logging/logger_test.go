package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		" WARN ":   slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"info":     slog.LevelInfo,
		"":         slog.LevelInfo,
		"verbose":  slog.LevelInfo,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("%q: expected %v, got %v", input, want, got)
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")
	logger.Info("record stored", "timestamp", "2025-03-01T10:00:00.000000")
	logger.Debug("hidden")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "record stored" || entry["timestamp"] != "2025-03-01T10:00:00.000000" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNew_TextFormatByDefault(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "").Debug("shown", "key", "value")
	if !strings.Contains(buf.String(), "msg=shown") || !strings.Contains(buf.String(), "key=value") {
		t.Errorf("unexpected text output %q", buf.String())
	}
}
