package monitor

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"spool/internal/format"
	"spool/internal/history"
	"spool/internal/logging"
	"spool/internal/services"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// updateEntry runs one surface's update. Every failure is scoped to this
// entry; other surfaces and the daemon never see it.
func (m *Monitor) updateEntry(ctx context.Context, key SurfaceKey, e *entry) {
	ctx = services.WithGID(ctx, e.gid)
	ctx = services.WithChatID(ctx, key.ChatID)
	logger := logging.WithContext(ctx, m.logger)

	snap, err := m.engine.TellStatus(ctx, e.gid)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNotFound):
		// The engine no longer knows the gid, usually after an external
		// purge. Treat it as a removal so the surface settles.
		snap = &aria2.Snapshot{GID: e.gid, Status: aria2.StatusRemoved, Name: e.name}
		if snap.Name == "" {
			snap.Name = e.gid
		}
	default:
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(logger, "engine status fetch failed; entry deferred to next cycle", "engine_fetch_failed",
			logging.Error(err))
		return
	}
	if snap.Name != "" {
		e.name = snap.Name
	}

	if e.sampler.ShouldLog(snap.Progress(), string(snap.Status)) {
		logger.Info("download progress",
			logging.String(logging.FieldStatus, string(snap.Status)),
			logging.Float64("percent", snap.Progress()),
			logging.Int64("speed", snap.DownloadSpeed))
	}

	text := format.TaskText(snap)
	fingerprint := contentFingerprint(text)

	surfaceGone := false
	if fingerprint != e.fingerprint {
		ref := telegram.MessageRef{ChatID: key.ChatID, MessageID: key.MessageID}
		keyboard := format.ControlKeyboard(snap.Status, snap.GID)
		switch err := m.editMessage(ctx, ref, text, keyboard); {
		case err == nil:
			e.fingerprint = fingerprint
		case errors.Is(err, services.ErrSurfaceGone):
			surfaceGone = true
			logger.Info("chat surface gone; dropping live updates",
				logging.Int(logging.FieldMessageID, key.MessageID))
		default:
			if ctx.Err() != nil {
				return
			}
			logging.WarnWithContext(logger, "message edit failed; will retry next cycle", "edit_failed",
				logging.Error(err))
			return
		}
	}

	if !snap.Status.IsTerminal() {
		if surfaceGone {
			m.Unregister(key)
		}
		return
	}

	if _, err := m.store.Upsert(ctx, recordFromSnapshot(snap)); err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(logger, "failed to record settled download; entry retained for retry", "history_upsert_failed",
			logging.Error(err))
		return
	}
	m.Unregister(key)
	logger.Info("download settled",
		logging.String(logging.FieldStatus, string(snap.Status)))
}

// editMessage performs the chat edit, honoring a single rate-limit backoff.
// The advertised wait is capped so one slow surface cannot stall its cycle
// slot indefinitely.
func (m *Monitor) editMessage(ctx context.Context, ref telegram.MessageRef, text string, keyboard *telegram.InlineKeyboard) error {
	err := m.chat.EditMessageText(ctx, ref, text, keyboard)
	if err == nil {
		return nil
	}
	wait, ok := services.RetryAfter(err)
	if !ok {
		return err
	}
	if wait <= 0 || wait > m.retryCap {
		wait = m.retryCap
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}
	return m.chat.EditMessageText(ctx, ref, text, keyboard)
}

func contentFingerprint(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}

func recordFromSnapshot(snap *aria2.Snapshot) *history.Record {
	name := snap.Name
	if name == "" {
		name = snap.GID
	}
	return &history.Record{
		GID:       snap.GID,
		Name:      name,
		Status:    history.Status(snap.Status),
		SizeBytes: snap.TotalLength,
		Error:     snap.ErrorMessage,
		Files:     snap.FilePaths(),
	}
}
