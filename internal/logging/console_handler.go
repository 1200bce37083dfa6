package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders human-readable log lines: a single header per record
// at info and above, with selected fields indented below it, and a full field
// dump at debug.
type consoleHandler struct {
	mu        sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
	seen      map[string]map[string]string
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{writer: w, level: lvl, addSource: addSource, seen: make(map[string]map[string]string)}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// header carries the identity fields promoted out of the attribute list into
// the log line header.
type header struct {
	component string
	gid       string
	status    string
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	fields := make([]field, 0, record.NumAttrs()+len(h.attrs))
	collectFields(&fields, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		collectField(&fields, h.groups, attr)
		return true
	})

	all := dedupeFields(append([]field(nil), fields...))

	var head header
	body := make([]field, 0, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			if head.component == "" {
				head.component = attrString(f.value)
			}
			continue
		case FieldGID:
			if head.gid == "" {
				head.gid = attrString(f.value)
			}
		case FieldStatus:
			if head.status == "" {
				head.status = attrString(f.value)
			}
		}
		body = append(body, f)
	}
	body = dedupeFields(body)

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(body)*32)

	h.mu.Lock()
	defer h.mu.Unlock()
	if record.Level < slog.LevelInfo {
		h.renderVerbose(&buf, timestamp, record.Level, head, message, record.Source(), all)
	} else {
		h.renderSummary(&buf, timestamp, record.Level, head, message, record.Source(), body)
	}
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) renderSummary(buf *bytes.Buffer, ts time.Time, level slog.Level, head header, message string, src *slog.Source, attrs []field) {
	h.writeHeader(buf, ts, level, head, message, src)
	fields, hidden := selectInfoFields(attrs, 0, h.addSource)
	fields, hidden = h.suppressRepeats(summaryKey(head, attrs), fields, hidden, level)
	buf.WriteByte('\n')
	for _, f := range fields {
		buf.WriteString("    - ")
		buf.WriteString(f.label)
		buf.WriteString(": ")
		buf.WriteString(f.value)
		buf.WriteByte('\n')
	}
	if hidden > 0 {
		buf.WriteString("    + ")
		buf.WriteString(strconv.Itoa(hidden))
		if hidden == 1 {
			buf.WriteString(" more field hidden\n")
		} else {
			buf.WriteString(" more fields hidden\n")
		}
	}
}

func (h *consoleHandler) renderVerbose(buf *bytes.Buffer, ts time.Time, level slog.Level, head header, message string, src *slog.Source, attrs []field) {
	h.writeHeader(buf, ts, level, head, message, src)
	buf.WriteByte('\n')
	for _, f := range attrs {
		if f.key == "" {
			continue
		}
		buf.WriteString("    ")
		buf.WriteString(f.key)
		buf.WriteString(": ")
		buf.WriteString(formatValue(f.value))
		buf.WriteByte('\n')
	}
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, head header, message string, src *slog.Source) {
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if head.component != "" {
		buf.WriteString(" [")
		buf.WriteString(head.component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(head.gid, head.status); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	if message != "" {
		buf.WriteString(" - ")
		buf.WriteString(message)
	}
	if h.addSource && src != nil {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(src.Line))
		buf.WriteByte(']')
	}
}

// suppressRepeats drops info fields whose value is unchanged since the last
// record for the same subject, so steady-state polling does not repeat itself.
// Warnings and errors always show every field.
func (h *consoleHandler) suppressRepeats(key string, fields []infoField, hidden int, level slog.Level) ([]infoField, int) {
	if key == "" || len(fields) == 0 {
		return fields, hidden
	}
	cache, ok := h.seen[key]
	if !ok {
		cache = make(map[string]string)
		h.seen[key] = cache
	}
	if level > slog.LevelInfo {
		for _, f := range fields {
			cache[f.label] = f.value
		}
		return fields, hidden
	}
	kept := fields[:0]
	for _, f := range fields {
		if prev, seen := cache[f.label]; seen && prev == f.value {
			continue
		}
		cache[f.label] = f.value
		kept = append(kept, f)
	}
	return kept, hidden
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	clone := &consoleHandler{
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		seen:      h.seen,
	}
	clone.attrs = append(clone.attrs, h.attrs...)
	clone.groups = append(clone.groups, h.groups...)
	return clone
}

type field struct {
	key   string
	value slog.Value
}

// dedupeFields keeps the first occurrence of each key with its latest value,
// matching slog semantics where later attributes override earlier ones.
func dedupeFields(attrs []field) []field {
	if len(attrs) < 2 {
		return attrs
	}
	position := make(map[string]int, len(attrs))
	out := attrs[:0]
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if at, ok := position[attr.key]; ok {
			out[at].value = attr.value
			continue
		}
		position[attr.key] = len(out)
		out = append(out, attr)
	}
	return out
}

func collectFields(dst *[]field, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		collectField(dst, prefix, attr)
	}
}

// collectField flattens grouped attributes into dot-joined keys.
func collectField(dst *[]field, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append(make([]string, 0, len(prefix)+1), prefix...), attr.Key)
		}
		collectFields(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		if key != "" {
			key = strings.Join(prefix, ".") + "." + key
		} else {
			key = strings.Join(prefix, ".")
		}
	}
	*dst = append(*dst, field{key: key, value: attr.Value})
}

func summaryKey(head header, attrs []field) string {
	if gid := strings.TrimSpace(head.gid); gid != "" {
		return gid
	}
	if name := attrValue(attrs, "name"); name != "" {
		return "name:" + name
	}
	return head.component
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
