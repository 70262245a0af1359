// Package log builds the slog logger used across Attributa. Every handler
// it returns redacts credentials before records reach the output.
package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces sensitive attribute values
const Redacted = "***REDACTED***"

var sensitiveKeys = map[string]bool{
	"authorization":  true,
	"api_key":        true,
	"apikey":         true,
	"api-key":        true,
	"remote_api_key": true,
	"token":          true,
	"access_token":   true,
	"secret":         true,
	"password":       true,
	"cookie":         true,
	"mailto":         true,
}

var sensitiveValues = []*regexp.Regexp{
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),        // OpenAI-style keys
	regexp.MustCompile(`(?i)^bearer\s+.+`),               // Bearer tokens
	regexp.MustCompile(`^eyJ[\w-]*\.eyJ[\w-]*\.[\w-]*$`), // JWTs
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),             // AWS access keys
}

// ParseLevel maps a config string to a slog level; unknown values mean warn
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New returns a logger writing text or JSON records at or above level
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewRedactingHandler(h))
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// RedactingHandler wraps a handler and masks credential attributes
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler wraps next
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redact(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(clean)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, g := range group {
			clean[i] = redact(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}

	if a.Value.Kind() == slog.KindString {
		v := a.Value.String()
		for _, re := range sensitiveValues {
			if re.MatchString(v) {
				return slog.String(a.Key, Redacted)
			}
		}
	}
	return a
}
