package logging

import (
	"context"
	"log/slog"
)

// FieldSessionID is the standardized structured logging key for diagnostic
// session identifiers.
const FieldSessionID = "session_id"

// sessionStamper decorates every record passing through with the session
// identifier so diagnostic runs can be correlated across log sinks.
type sessionStamper struct {
	next slog.Handler
	id   string
}

func newSessionIDHandler(next slog.Handler, sessionID string) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &sessionStamper{next: next, id: sessionID}
}

func (s *sessionStamper) Enabled(ctx context.Context, level slog.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s *sessionStamper) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldSessionID, s.id))
	return s.next.Handle(ctx, record)
}

func (s *sessionStamper) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionStamper{next: s.next.WithAttrs(attrs), id: s.id}
}

func (s *sessionStamper) WithGroup(name string) slog.Handler {
	return &sessionStamper{next: s.next.WithGroup(name), id: s.id}
}
