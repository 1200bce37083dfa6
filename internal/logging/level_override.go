package logging

import (
	"context"
	"log/slog"
	"strings"
)

// minLevelHandler raises the effective minimum level of a wrapped handler.
// The wrapped handler keeps its own threshold; records below the override
// are rejected before they reach it.
type minLevelHandler struct {
	next slog.Handler
	min  slog.Level
}

func (h minLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.next.Enabled(ctx, level)
}

func (h minLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.min {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h minLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return minLevelHandler{next: h.next.WithAttrs(attrs), min: h.min}
}

func (h minLevelHandler) WithGroup(name string) slog.Handler {
	return minLevelHandler{next: h.next.WithGroup(name), min: h.min}
}

// WithLevelOverride returns a logger that drops records below level while
// keeping the wrapped handler's wiring and attributes. Overriding an already
// overridden logger replaces the previous threshold instead of stacking
// filters.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	next := logger.Handler()
	if wrapped, ok := next.(minLevelHandler); ok {
		next = wrapped.next
	}
	return slog.New(minLevelHandler{next: next, min: level})
}

// ForComponent applies a per-component minimum level from the configured
// overrides map. Keys are matched case-insensitively against the component
// name; without a match the base logger is returned untouched.
func ForComponent(base *slog.Logger, overrides map[string]string, component string) *slog.Logger {
	if base == nil {
		base = NewNop()
	}
	want := strings.ToLower(strings.TrimSpace(component))
	if want == "" {
		return base
	}
	for name, level := range overrides {
		if strings.ToLower(strings.TrimSpace(name)) == want {
			return WithLevelOverride(base, ParseLevel(level))
		}
	}
	return base
}
