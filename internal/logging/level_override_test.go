package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestForComponentRaisesLevel(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger := ForComponent(base, map[string]string{"monitor": "warn"}, "monitor")
	logger.Info("suppressed")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Errorf("info record should have been filtered: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestForComponentMatchesKeysCaseInsensitively(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger := ForComponent(base, map[string]string{" Monitor ": "error"}, "monitor")
	logger.Warn("suppressed")

	if strings.Contains(buf.String(), "suppressed") {
		t.Errorf("warn record should have been filtered: %s", buf.String())
	}
}

func TestForComponentWithoutOverride(t *testing.T) {
	base := NewNop()
	if got := ForComponent(base, map[string]string{"bot": "debug"}, "monitor"); got != base {
		t.Error("expected base logger unchanged when no override matches")
	}
	if got := ForComponent(nil, nil, "monitor"); got == nil {
		t.Error("expected non-nil logger for nil base")
	}
}
