package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/format"
	"spool/internal/history"
	"spool/internal/logging"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// stoppedScanWindow bounds the engine's stopped-task listing per cycle.
// Re-scanning is safe because the history upsert ignores known gids.
const stoppedScanWindow = 100

// Notifier watches for settled downloads and pushes a completion message to
// every configured chat. A record is marked notified once at least one chat
// accepted the message; until then every cycle retries, so delivery is
// at-least-once.
type Notifier struct {
	store    *history.Store
	engine   aria2.Client
	chat     telegram.Client
	push     Service
	targets  []int64
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewNotifier wires a notifier from its collaborators. A nil push service
// disables the secondary channel.
func NewNotifier(cfg *config.Config, store *history.Store, engine aria2.Client, chat telegram.Client, push Service, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if push == nil {
		push = noopService{}
	}
	interval := time.Duration(cfg.Monitor.NotifyInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &Notifier{
		store:    store,
		engine:   engine,
		chat:     chat,
		push:     push,
		targets:  cfg.NotifyTargets(),
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "notifier"),
	}
}

// Start launches the periodic notification loop.
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return errors.New("notifier already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	n.running = true
	n.cancel = cancel
	n.wg.Add(1)
	n.mu.Unlock()

	go n.run(runCtx)
	return nil
}

// Stop terminates the loop and waits for the in-flight cycle.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	cancel := n.cancel
	n.running = false
	n.cancel = nil
	n.mu.Unlock()

	cancel()
	n.wg.Wait()
}

func (n *Notifier) run(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(n.interval):
		}
		if err := n.CheckAndNotify(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(n.logger, "notification cycle failed; will retry next interval", "notify_cycle_failed",
				logging.Error(err))
		}
	}
}

// CheckAndNotify runs one notification cycle: absorb the engine's stopped
// tasks into the history store, then deliver every unnotified record.
func (n *Notifier) CheckAndNotify(ctx context.Context) error {
	if err := n.absorbStopped(ctx); err != nil {
		return err
	}

	pending, err := n.store.Pending(ctx)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n.deliver(ctx, rec)
	}
	return nil
}

// absorbStopped records terminal downloads the monitor never saw, such as
// those finishing while the daemon was down.
func (n *Notifier) absorbStopped(ctx context.Context) error {
	snaps, err := n.engine.TellStopped(ctx, 0, stoppedScanWindow)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if !snap.Status.IsTerminal() {
			continue
		}
		inserted, err := n.store.Upsert(ctx, recordFromSnapshot(snap))
		if err != nil {
			logging.WarnWithContext(n.logger, "failed to record settled download; will retry next cycle", "history_upsert_failed",
				logging.String(logging.FieldGID, snap.GID), logging.Error(err))
			continue
		}
		if inserted {
			n.logger.Info("recorded settled download",
				logging.String(logging.FieldGID, snap.GID),
				logging.String("status", string(snap.Status)))
		}
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, rec *history.Record) {
	text := format.CompletionNotification(rec)

	delivered := 0
	for _, target := range n.targets {
		if _, err := n.chat.SendMessage(ctx, target, text, nil); err != nil {
			logging.WarnWithContext(n.logger, "notification delivery failed; recipient skipped this cycle", "notify_delivery_failed",
				logging.String(logging.FieldGID, rec.GID),
				logging.Int64(logging.FieldChatID, target),
				logging.Error(err))
			continue
		}
		delivered++
	}

	if err := n.push.NotifyDownloadSettled(ctx, rec); err != nil {
		logging.WarnWithContext(n.logger, "ntfy delivery failed; chat delivery unaffected", "ntfy_delivery_failed",
			logging.String(logging.FieldGID, rec.GID), logging.Error(err))
	}

	if delivered == 0 && len(n.targets) > 0 {
		return
	}
	if err := n.store.MarkNotified(ctx, rec.GID); err != nil {
		logging.WarnWithContext(n.logger, "failed to mark record notified; notification may repeat", "history_mark_failed",
			logging.String(logging.FieldGID, rec.GID), logging.Error(err))
		return
	}
	n.logger.Info("notification delivered",
		logging.String(logging.FieldGID, rec.GID),
		logging.Int("recipients", delivered))
}

func recordFromSnapshot(snap *aria2.Snapshot) *history.Record {
	return &history.Record{
		GID:       snap.GID,
		Name:      snap.Name,
		Status:    history.Status(snap.Status),
		SizeBytes: snap.TotalLength,
		Error:     snap.ErrorMessage,
		Files:     snap.FilePaths(),
	}
}
