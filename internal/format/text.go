package format

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// NameWidth bounds download and file names in chat output.
	NameWidth = 30
	// ErrorWidth bounds engine error messages in list output.
	ErrorWidth = 50

	barSlots = 10
)

// EscapeHTML escapes text for Telegram's HTML parse mode.
func EscapeHTML(value string) string {
	return html.EscapeString(value)
}

// TruncateMiddle shortens value to at most max runes, eliding the middle so
// both the prefix and the extension stay visible.
func TruncateMiddle(value string, max int) string {
	runes := []rune(value)
	if max <= 0 || len(runes) <= max {
		return value
	}
	if max <= 3 {
		return string(runes[:max])
	}
	half := (max - 3) / 2
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// ProgressBar renders a ten-slot bar followed by a one-decimal percentage.
// Out-of-range values render as zero progress.
func ProgressBar(percent float64) string {
	if percent < 0 || percent > 100 {
		percent = 0
	}
	filled := int(percent / 10)
	return strings.Repeat("■", filled) + strings.Repeat("□", barSlots-filled) + fmt.Sprintf(" %.1f%%", percent)
}

// Size renders a byte count in binary units.
func Size(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// Speed renders a transfer rate in binary units per second.
func Speed(bytesPerSecond int64) string {
	return Size(bytesPerSecond) + "/s"
}

// ETA renders a duration as compact hour/minute/second parts. Non-positive
// durations render empty.
func ETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, "")
}

// StatusLabel renders a lifecycle status for display.
func StatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

// Timestamp renders a completion time for chat output.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
