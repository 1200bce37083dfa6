package daemon

import (
	"context"
	"fmt"
	"strings"

	"spool/internal/history"
	"spool/internal/logging"
	"spool/internal/services"
	"spool/internal/services/aria2"
)

const downloadsWindow = 1000

// Downloads returns the engine's current view: active tasks first, then
// queued ones, then a window of the most recently stopped.
func (d *Daemon) Downloads(ctx context.Context) ([]*aria2.Snapshot, error) {
	return aria2.Overview(ctx, d.engine, downloadsWindow)
}

// Add submits a new download. Every URI is a mirror of the same payload. A
// non-empty dir overrides the configured download directory.
func (d *Daemon) Add(ctx context.Context, uris []string, dir string) (string, error) {
	cleaned := make([]string, 0, len(uris))
	for _, uri := range uris {
		if trimmed := strings.TrimSpace(uri); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return "", services.Wrap(services.ErrValidation, "daemon", "add", "at least one URI is required", nil)
	}

	options := map[string]string{}
	target := strings.TrimSpace(dir)
	if target == "" {
		target = strings.TrimSpace(d.cfg.Aria2.DownloadDir)
	}
	if target != "" {
		options["dir"] = target
	}

	gid, err := d.engine.AddURI(ctx, cleaned, options)
	if err != nil {
		return "", err
	}
	d.logger.Info("download added",
		logging.String(logging.FieldGID, gid),
		logging.Int("uri_count", len(cleaned)),
		logging.String(logging.FieldEventType, "download_added"))
	return gid, nil
}

// Pause pauses one download.
func (d *Daemon) Pause(ctx context.Context, gid string) error {
	return d.gidAction(ctx, "pause", gid, d.engine.Pause)
}

// Unpause resumes one paused download.
func (d *Daemon) Unpause(ctx context.Context, gid string) error {
	return d.gidAction(ctx, "unpause", gid, d.engine.Unpause)
}

// Remove removes one download from the engine.
func (d *Daemon) Remove(ctx context.Context, gid string) error {
	return d.gidAction(ctx, "remove", gid, d.engine.Remove)
}

func (d *Daemon) gidAction(ctx context.Context, action, gid string, op func(context.Context, string) error) error {
	gid = strings.TrimSpace(gid)
	if gid == "" {
		return services.Wrap(services.ErrValidation, "daemon", action, "gid is required", nil)
	}
	if err := op(ctx, gid); err != nil {
		return err
	}
	d.logger.Info("engine action applied",
		logging.String("action", action),
		logging.String(logging.FieldGID, gid),
		logging.String(logging.FieldEventType, "engine_action"))
	return nil
}

// PauseAll pauses every active download.
func (d *Daemon) PauseAll(ctx context.Context) error {
	return d.allAction(ctx, "pauseall", d.engine.PauseAll)
}

// UnpauseAll resumes every paused download.
func (d *Daemon) UnpauseAll(ctx context.Context) error {
	return d.allAction(ctx, "unpauseall", d.engine.UnpauseAll)
}

func (d *Daemon) allAction(ctx context.Context, action string, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}
	d.logger.Info("engine action applied",
		logging.String("action", action),
		logging.String(logging.FieldEventType, "engine_action"))
	return nil
}

// HistoryPage returns one page of finished downloads, newest first, plus the
// total record count.
func (d *Daemon) HistoryPage(ctx context.Context, offset, limit int) ([]*history.Record, int, error) {
	return d.store.Page(ctx, offset, limit)
}

// HistorySearch returns one page of finished downloads whose name matches
// term, newest first, plus the total match count.
func (d *Daemon) HistorySearch(ctx context.Context, term string, offset, limit int) ([]*history.Record, int, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, 0, services.Wrap(services.ErrValidation, "daemon", "history search", "search term is required", nil)
	}
	return d.store.Search(ctx, term, offset, limit)
}

// ClearHistory deletes every history record and reports how many were
// removed.
func (d *Daemon) ClearHistory(ctx context.Context) (int64, error) {
	removed, err := d.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	d.logger.Info("history cleared",
		logging.Int64("removed_count", removed),
		logging.String(logging.FieldEventType, "history_cleared"))
	return removed, nil
}

// TestNotification sends a test message to every configured notification
// channel and reports the outcome.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	targets := d.cfg.NotifyTargets()
	hasPush := strings.TrimSpace(d.cfg.Notifications.NtfyTopic) != ""
	if len(targets) == 0 && !hasPush {
		return false, "no notification targets configured", nil
	}

	delivered := 0
	var firstErr error
	for _, chatID := range targets {
		if _, err := d.chat.SendMessage(ctx, chatID, "🔔 Test notification from spool.", nil); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logging.WarnWithContext(d.logger, "test notification delivery failed", "notify_failed",
				logging.Int64(logging.FieldChatID, chatID),
				logging.Error(err))
			continue
		}
		delivered++
	}

	pushed := false
	if hasPush {
		if err := d.push.TestNotification(ctx); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logging.WarnWithContext(d.logger, "test push delivery failed", "notify_failed",
				logging.Error(err))
		} else {
			pushed = true
		}
	}

	if delivered == 0 && !pushed {
		return false, "failed to send test notification", firstErr
	}
	message := describeDeliveries(delivered, pushed)
	d.logger.Info("test notification sent",
		logging.Int("chat_count", delivered),
		logging.Bool("push_sent", pushed),
		logging.String(logging.FieldEventType, "notification_test"))
	return true, message, nil
}

func describeDeliveries(chats int, pushed bool) string {
	switch {
	case chats > 0 && pushed:
		return "test notification sent to " + plural(chats, "chat") + " and ntfy"
	case chats > 0:
		return "test notification sent to " + plural(chats, "chat")
	default:
		return "test notification sent to ntfy"
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
