package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_RedactsByKey(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "text")

	logger.Info("calling provider", "api_key", "plain-value", "model", "gpt-4o-mini")

	out := buf.String()
	if strings.Contains(out, "plain-value") {
		t.Errorf("expected api_key to be redacted, got %s", out)
	}
	if !strings.Contains(out, "gpt-4o-mini") {
		t.Errorf("expected model to pass through, got %s", out)
	}
}

func TestNew_RedactsByValue(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.Info("request", "header", "Bearer abc.def", "note", "sk-abcdefghijklmnopqrstu")

	out := buf.String()
	if strings.Contains(out, "abc.def") || strings.Contains(out, "sk-abcdefghijklmnopqrstu") {
		t.Errorf("expected values to be redacted, got %s", out)
	}
}

func TestNew_RedactsInGroupsAndWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "text").With("token", "t0p")

	logger.Debug("grouped", slog.Group("llm", slog.String("api_key", "k3y")))

	out := buf.String()
	if strings.Contains(out, "t0p") || strings.Contains(out, "k3y") {
		t.Errorf("expected nested values to be redacted, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"error":   slog.LevelError,
		"warn":    slog.LevelWarn,
		"unknown": slog.LevelWarn,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %s", out)
	}
}
