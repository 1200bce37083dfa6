package format

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestTruncateMiddle(t *testing.T) {
	if got := TruncateMiddle("short.mkv", 30); got != "short.mkv" {
		t.Errorf("short name should pass through, got %q", got)
	}

	long := "0123456789012345678901234567890123456789"
	got := TruncateMiddle(long, 30)
	if !strings.Contains(got, "...") {
		t.Fatalf("long name should be elided, got %q", got)
	}
	if utf8.RuneCountInString(got) > 30 {
		t.Errorf("elided name exceeds width: %q", got)
	}
	if !strings.HasPrefix(got, "0123456789012") || !strings.HasSuffix(got, "7890123456789") {
		t.Errorf("both ends should stay visible, got %q", got)
	}
}

func TestTruncateMiddleRuneSafe(t *testing.T) {
	long := strings.Repeat("日", 40)
	got := TruncateMiddle(long, 9)
	if got != "日日日...日日日" {
		t.Errorf("multibyte elision mismatch: %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	cases := []struct {
		percent float64
		want    string
	}{
		{0, "□□□□□□□□□□ 0.0%"},
		{41.5, "■■■■□□□□□□ 41.5%"},
		{100, "■■■■■■■■■■ 100.0%"},
		{-3, "□□□□□□□□□□ 0.0%"},
		{150, "□□□□□□□□□□ 0.0%"},
	}
	for _, tc := range cases {
		if got := ProgressBar(tc.percent); got != tc.want {
			t.Errorf("ProgressBar(%v) = %q, want %q", tc.percent, got, tc.want)
		}
	}
}

func TestSizeAndSpeed(t *testing.T) {
	if got := Size(0); got != "0 B" {
		t.Errorf("Size(0) = %q", got)
	}
	if got := Size(1536); got != "1.5 KiB" {
		t.Errorf("Size(1536) = %q", got)
	}
	if got := Size(-12); got != "0 B" {
		t.Errorf("negative sizes should clamp to zero, got %q", got)
	}
	if got := Speed(1536); got != "1.5 KiB/s" {
		t.Errorf("Speed(1536) = %q", got)
	}
}

func TestETA(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, ""},
		{-time.Second, ""},
		{15 * time.Second, "15s"},
		{8*time.Minute + 32*time.Second, "8m32s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h2m3s"},
		{2 * time.Hour, "2h0m"},
	}
	for _, tc := range cases {
		if got := ETA(tc.d); got != tc.want {
			t.Errorf("ETA(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel("active"); got != "Active" {
		t.Errorf("StatusLabel(active) = %q", got)
	}
	if got := StatusLabel("  queued "); got != "Queued" {
		t.Errorf("StatusLabel should trim, got %q", got)
	}
	if got := StatusLabel(""); got != "" {
		t.Errorf("empty status should stay empty, got %q", got)
	}
}

func TestTimestamp(t *testing.T) {
	if got := Timestamp(time.Time{}); got != "" {
		t.Errorf("zero time should render empty, got %q", got)
	}
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := Timestamp(at); got != "2026-03-14 09:26" {
		t.Errorf("Timestamp = %q", got)
	}
}

func TestEscapeHTML(t *testing.T) {
	if got := EscapeHTML("<a&b>"); got != "&lt;a&amp;b&gt;" {
		t.Errorf("EscapeHTML = %q", got)
	}
}
