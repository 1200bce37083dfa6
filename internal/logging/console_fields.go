package logging

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"name",
	"uri",
	FieldStatus,
	"progress_percent",
	"completed_bytes",
	"total_bytes",
	"speed_bytes",
	"eta",
	"error_message",
	FieldErrorCode,
	FieldErrorHint,
	FieldCommand,
	"callback",
	FieldChatID,
	FieldMessageID,
	"recipients",
	"delivered",
	"notified",
	"page",
	"total_pages",
	"query",
	"tracked",
	"records",
	"removed",
	"retained",
	"cycle_duration",
	"backoff",
	"reason",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
// Highlighted keys come first in their canonical order; the rest keep record order.
func selectInfoFields(attrs []field, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}

	fields := make([]infoField, 0, infoAttrLimit)
	hidden := 0
	used := make([]bool, len(attrs))

	consume := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipInfoKey(attr.key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		val := formatValueForKeyWithAttrs(attr.key, attr.value, attrs)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			return
		}
		if limit > 0 && len(fields) >= limit {
			hidden++
			return
		}
		fields = append(fields, infoField{label: displayLabel(attr.key), value: val})
	}

	for _, key := range infoHighlightKeys {
		if limit > 0 && len(fields) >= limit {
			break
		}
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				consume(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			consume(idx)
		}
	}
	return fields, hidden
}

// formatValueForKeyWithAttrs applies smart formatting based on the key name.
func formatValueForKeyWithAttrs(key string, v slog.Value, attrs []field) string {
	v = v.Resolve()

	if isByteSizeKey(key) && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64) {
		var size uint64
		if v.Kind() == slog.KindInt64 {
			if raw := v.Int64(); raw > 0 {
				size = uint64(raw)
			}
		} else {
			size = v.Uint64()
		}
		return humanize.IBytes(size)
	}

	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}

	if isPercentKey(key) && v.Kind() == slog.KindFloat64 {
		return formatPercent(v.Float64())
	}

	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}

	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

func formatDurationHuman(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64) + "%"
}

// isByteSizeKey returns true if the key represents a byte size.
func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size") ||
		key == "size"
}

// isDurationKey returns true if the key represents a duration.
func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency") ||
		key == "elapsed" ||
		key == "duration" ||
		key == "backoff"
}

// isPercentKey returns true if the key represents a percentage.
func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent")
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "..."
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldGID, FieldStatus, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	switch key {
	case FieldChatID, FieldMessageID, "page", "total_pages":
		return false
	case FieldCorrelationID, FieldSessionID, "fingerprint", "socket", "offset", "update_id":
		return true
	}
	if strings.Contains(key, "correlation") {
		return true
	}
	if strings.HasSuffix(key, "_id") {
		return true
	}
	if strings.Contains(key, "_path") || strings.Contains(key, "_dir") {
		return true
	}
	if strings.Contains(key, "fingerprint") {
		return true
	}
	return false
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", "uri", "reason":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorCode:
		return "Error Code"
	case FieldErrorHint:
		return "Hint"
	case FieldGID:
		return "Download"
	case FieldStatus:
		return "Status"
	case FieldChatID:
		return "Chat"
	case FieldMessageID:
		return "Message"
	case FieldCommand:
		return "Command"
	case "name":
		return "Name"
	case "uri":
		return "URI"
	case "progress_percent":
		return "Progress"
	case "completed_bytes":
		return "Done"
	case "total_bytes":
		return "Total"
	case "speed_bytes":
		return "Speed"
	case "eta":
		return "ETA"
	case "error_message":
		return "Error"
	case "callback":
		return "Callback"
	case "recipients":
		return "Recipients"
	case "delivered":
		return "Delivered"
	case "notified":
		return "Notified"
	case "page":
		return "Page"
	case "total_pages":
		return "Pages"
	case "query":
		return "Query"
	case "tracked":
		return "Tracked"
	case "records":
		return "Records"
	case "removed":
		return "Removed"
	case "retained":
		return "Retained"
	case "cycle_duration":
		return "Cycle"
	case "backoff":
		return "Backoff"
	case "reason":
		return "Reason"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

func attrValue(attrs []field, key string) string {
	for _, f := range attrs {
		if f.key == key {
			return attrString(f.value)
		}
	}
	return ""
}
