package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewForwardsToSlog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	New(base, "cron").Printf("skip, %s", "still running")

	out := buf.String()
	if !strings.Contains(out, "component=cron") || !strings.Contains(out, "still running") || !strings.Contains(out, "level=DEBUG") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNewWithoutBase(t *testing.T) {
	t.Parallel()

	New(nil, "cron").Print("dropped")
}
