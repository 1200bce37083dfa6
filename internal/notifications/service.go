package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spool/internal/config"
	"spool/internal/format"
	"spool/internal/history"
)

const userAgent = "Spool/0.1.0"

// Service is the secondary push channel fired alongside chat delivery. It
// never participates in the notified flag; chat delivery alone decides that.
type Service interface {
	NotifyDownloadSettled(ctx context.Context, rec *history.Record) error
	TestNotification(ctx context.Context) error
}

// NewService builds a push service backed by ntfy when configured. When no
// ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	server := strings.TrimRight(strings.TrimSpace(cfg.Notifications.NtfyServer), "/")
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: server + "/" + topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyDownloadSettled(ctx context.Context, rec *history.Record) error {
	name := strings.TrimSpace(rec.Name)
	data := payload{
		tags: []string{"spool", "download", string(rec.Status)},
	}
	switch rec.Status {
	case history.StatusFailed:
		data.title = "Spool - Download Failed"
		message := fmt.Sprintf("❌ Download failed: %s", name)
		if errText := strings.TrimSpace(rec.Error); errText != "" {
			message = fmt.Sprintf("%s: %s", message, errText)
		}
		data.message = message
		data.priority = "high"
	case history.StatusRemoved:
		data.title = "Spool - Download Removed"
		data.message = fmt.Sprintf("Download removed: %s", name)
	default:
		data.title = "Spool - Download Complete"
		data.message = fmt.Sprintf("✅ Download complete: %s (%s)", name, format.Size(rec.SizeBytes))
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Spool - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"spool", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	applyHeaders(req, data)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	return drainResponse(resp)
}

// applyHeaders maps the payload onto ntfy's header-based publish options.
func applyHeaders(req *http.Request, data payload) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
}

func drainResponse(resp *http.Response) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyDownloadSettled(context.Context, *history.Record) error { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
