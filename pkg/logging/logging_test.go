package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("budget recalculated", "budget_id", "b1")
	logger.Warn("budget over threshold", "budget_id", "b2")

	out := buf.String()
	if strings.Contains(out, "recalculated") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "budget over threshold") || !strings.Contains(out, "budget_id=b2") {
		t.Errorf("warn line missing: %q", out)
	}
}
