package logging

import (
	"context"
	"log/slog"
)

// multiHandler forwards each record to every registered handler that accepts
// the record's level.
type multiHandler struct {
	targets []slog.Handler
}

func newMultiHandler(targets ...slog.Handler) slog.Handler {
	live := make([]slog.Handler, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			live = append(live, target)
		}
	}
	switch len(live) {
	case 0:
		return NoopHandler{}
	case 1:
		return live[0]
	}
	return &multiHandler{targets: live}
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range m.targets {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	remaining := 0
	for _, target := range m.targets {
		if target.Enabled(ctx, record.Level) {
			remaining++
		}
	}
	for _, target := range m.targets {
		if !target.Enabled(ctx, record.Level) {
			continue
		}
		remaining--
		rec := record
		if remaining > 0 {
			// Handlers may retain or mutate the record; only the final
			// recipient gets the original.
			rec = record.Clone()
		}
		if err := target.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.targets))
	for i, target := range m.targets {
		next[i] = target.WithAttrs(attrs)
	}
	return &multiHandler{targets: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.targets))
	for i, target := range m.targets {
		next[i] = target.WithGroup(name)
	}
	return &multiHandler{targets: next}
}

// TeeLogger returns a logger that writes through base and additionally to the
// given handlers. Used by diagnostic mode to mirror output into a debug log.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(newMultiHandler(handlers...))
	}
	all := append([]slog.Handler{base.Handler()}, handlers...)
	return slog.New(newMultiHandler(all...))
}
