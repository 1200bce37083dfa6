package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/history"
	"spool/internal/logging"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// SurfaceKey identifies one chat message receiving live updates.
type SurfaceKey struct {
	ChatID    int64
	MessageID int
}

type entry struct {
	gid         string
	name        string
	fingerprint uint64
	sampler     *logging.ProgressSampler
}

// Monitor keeps registered chat messages in sync with the engine's view of
// their downloads. Each cycle fetches every tracked download, renders it, and
// edits the message only when the rendered content actually changed. Terminal
// downloads are recorded in history and dropped from tracking.
type Monitor struct {
	engine aria2.Client
	chat   telegram.Client
	store  *history.Store
	logger *slog.Logger

	interval      time.Duration
	maxConcurrent int
	retryCap      time.Duration

	mu      sync.Mutex
	entries map[SurfaceKey]*entry

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMonitor wires a monitor from its collaborators.
func NewMonitor(cfg *config.Config, store *history.Store, engine aria2.Client, chat telegram.Client, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Monitor.UpdateInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxConcurrent := cfg.Monitor.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	retryCap := time.Duration(cfg.Monitor.ErrorRetryInterval) * time.Second
	if retryCap <= 0 {
		retryCap = 10 * time.Second
	}
	return &Monitor{
		engine:        engine,
		chat:          chat,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "monitor"),
		interval:      interval,
		maxConcurrent: maxConcurrent,
		retryCap:      retryCap,
		entries:       make(map[SurfaceKey]*entry),
	}
}

// Register starts live updates for the given chat message. Registering an
// already-tracked surface is a no-op.
func (m *Monitor) Register(chatID int64, messageID int, gid string) {
	key := SurfaceKey{ChatID: chatID, MessageID: messageID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return
	}
	m.entries[key] = &entry{gid: gid, sampler: logging.NewProgressSampler(0)}
	m.logger.Info("tracking download",
		logging.String(logging.FieldGID, gid),
		logging.Int64(logging.FieldChatID, chatID),
		logging.Int(logging.FieldMessageID, messageID))
}

// Unregister stops live updates for the given surface. Unknown keys are
// ignored.
func (m *Monitor) Unregister(key SurfaceKey) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Tracked returns the number of surfaces currently receiving live updates.
func (m *Monitor) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Start launches the periodic update loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates the loop and waits for the in-flight cycle.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.interval):
		}
		m.cycle(ctx)
	}
}

// cycle updates every tracked surface once with bounded fan-out. It returns
// only after all updates finish, so cycles never overlap.
func (m *Monitor) cycle(ctx context.Context) {
	m.mu.Lock()
	batch := make(map[SurfaceKey]*entry, len(m.entries))
	for key, e := range m.entries {
		batch[key] = e
	}
	m.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	sem := make(chan struct{}, m.maxConcurrent)
	var wg sync.WaitGroup
	for key, e := range batch {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(key SurfaceKey, e *entry) {
			defer wg.Done()
			defer func() { <-sem }()
			m.updateEntry(ctx, key, e)
		}(key, e)
	}
	wg.Wait()
}
