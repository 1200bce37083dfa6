package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"spool/internal/config"
	"spool/internal/history"
	"spool/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	rec := &history.Record{GID: "g1", Name: "a.iso", Status: history.StatusComplete}
	if err := svc.NotifyDownloadSettled(context.Background(), rec); err != nil {
		t.Fatalf("expected noop service to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

type capturedPush struct {
	path     string
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, captured *capturedPush) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.path = r.URL.Path
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func newNtfyConfig(server *httptest.Server) config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyServer = server.URL
	cfg.Notifications.NtfyTopic = "spool-downloads"
	cfg.Notifications.RequestTimeout = 5
	return cfg
}

func TestNtfyServiceFormatsSettledDownloads(t *testing.T) {
	tests := []struct {
		name           string
		record         *history.Record
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "complete",
			record:        &history.Record{GID: "g1", Name: "fedora.iso", Status: history.StatusComplete, SizeBytes: 2048},
			expectTitle:   "Spool - Download Complete",
			expectMessage: "✅ Download complete: fedora.iso (2.0 KiB)",
			expectTags:    "spool,download,complete",
		},
		{
			name:           "failed",
			record:         &history.Record{GID: "g2", Name: "bad.iso", Status: history.StatusFailed, Error: "disk full"},
			expectTitle:    "Spool - Download Failed",
			expectMessage:  "❌ Download failed: bad.iso: disk full",
			expectTags:     "spool,download,failed",
			expectPriority: "high",
		},
		{
			name:          "removed",
			record:        &history.Record{GID: "g3", Name: "gone.iso", Status: history.StatusRemoved},
			expectTitle:   "Spool - Download Removed",
			expectMessage: "Download removed: gone.iso",
			expectTags:    "spool,download,removed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured capturedPush
			server := newCaptureServer(t, &captured)
			cfg := newNtfyConfig(server)

			svc := notifications.NewService(&cfg)
			if err := svc.NotifyDownloadSettled(context.Background(), tc.record); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.path != "/spool-downloads" {
				t.Errorf("expected topic path, got %q", captured.path)
			}
			if captured.title != tc.expectTitle {
				t.Errorf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Errorf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Errorf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Errorf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceTestNotification(t *testing.T) {
	var captured capturedPush
	server := newCaptureServer(t, &captured)
	cfg := newNtfyConfig(server)

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("test notification returned error: %v", err)
	}
	if captured.title != "Spool - Test" {
		t.Errorf("unexpected title %q", captured.title)
	}
	if captured.priority != "low" {
		t.Errorf("unexpected priority %q", captured.priority)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)
	cfg := newNtfyConfig(server)

	svc := notifications.NewService(&cfg)
	rec := &history.Record{GID: "g1", Name: "a.iso", Status: history.StatusComplete}
	if err := svc.NotifyDownloadSettled(context.Background(), rec); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
