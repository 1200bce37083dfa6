package services_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"spool/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "aria2", "tellStatus", "call failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"aria2", "tellStatus", "call failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "telegram", "editMessage", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to transient, got %v", err)
	}
}

func TestRateLimitErrorUnwrapsToTransient(t *testing.T) {
	err := &services.RateLimitError{RetryAfter: 3 * time.Second}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected rate limit error to classify as transient, got %v", err)
	}
	wait, ok := services.RetryAfter(err)
	if !ok {
		t.Fatal("expected retry-after to be advertised")
	}
	if wait != 3*time.Second {
		t.Fatalf("expected 3s retry-after, got %s", wait)
	}
	wrapped := services.Wrap(nil, "telegram", "editMessage", "throttled", err)
	wait, ok = services.RetryAfter(wrapped)
	if !ok || wait != 3*time.Second {
		t.Fatalf("expected retry-after to survive wrapping, got %s ok=%v", wait, ok)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	if services.IsRetryable(nil) {
		t.Fatal("nil error should not be retryable")
	}
	transient := services.Wrap(services.ErrTransient, "aria2", "tellStatus", "", errors.New("io"))
	if !services.IsRetryable(transient) {
		t.Fatalf("expected transient error to be retryable, got %v", transient)
	}
	gone := services.Wrap(services.ErrSurfaceGone, "telegram", "editMessage", "message deleted", nil)
	if services.IsRetryable(gone) {
		t.Fatalf("expected gone surface to be permanent, got %v", gone)
	}
	validation := services.Wrap(services.ErrValidation, "bot", "add", "missing uri", nil)
	if services.IsRetryable(validation) {
		t.Fatalf("expected validation error to be permanent, got %v", validation)
	}
}

func TestRetryAfterAbsent(t *testing.T) {
	if _, ok := services.RetryAfter(errors.New("plain")); ok {
		t.Fatal("plain error should not advertise retry-after")
	}
}
