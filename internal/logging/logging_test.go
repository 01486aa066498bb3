package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":     slog.LevelError,
		" WARN ":    slog.LevelWarn,
		"warning":   slog.LevelWarn,
		"info":      slog.LevelInfo,
		"debug":     slog.LevelDebug,
		"something": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriterFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn").With("component", "pipeline")

	logger.Info("hidden")
	logger.Warn("shown", "items", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "component=pipeline") || !strings.Contains(out, "items=3") {
		t.Fatalf("unexpected output: %s", out)
	}
}
