package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"spool/internal/config"
	"spool/internal/history"
	"spool/internal/logging"
	"spool/internal/pagestate"
	"spool/internal/services"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

const (
	defaultPollTimeout = 30
	defaultPageSize    = 10
	defaultFetchLimit  = 1000

	pollRetryDelay = 5 * time.Second
)

// Tracker registers chat messages for live progress updates. The task
// monitor satisfies it.
type Tracker interface {
	Register(chatID int64, messageID int, gid string)
}

// Bot runs the long-poll dispatch loop for the Telegram surface. Incoming
// commands and keyboard callbacks are authorized against the chat allow-list
// and routed to the engine, the history store, and the page state registries.
type Bot struct {
	cfg     *config.Config
	chat    telegram.Client
	engine  aria2.Client
	store   *history.Store
	tracker Tracker
	logger  *slog.Logger

	pollTimeout int
	pageSize    int
	fetchLimit  int
	downloadDir string

	historyPages *pagestate.Registry[*history.Record]
	searchPages  *pagestate.Registry[*history.Record]
	statusPages  *pagestate.Registry[*aria2.Snapshot]

	// offset is touched only by the run goroutine.
	offset int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewBot wires a bot from its collaborators. The tracker may be nil, in which
// case added downloads simply receive no live updates.
func NewBot(cfg *config.Config, store *history.Store, engine aria2.Client, chat telegram.Client, tracker Tracker, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollTimeout := cfg.Telegram.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	pageSize := cfg.Pagination.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	fetchLimit := cfg.Database.MaxHistory
	if fetchLimit < 1 {
		fetchLimit = defaultFetchLimit
	}
	ttl := time.Duration(cfg.Pagination.TTLMinutes) * time.Minute
	sweep := time.Duration(cfg.Pagination.SweepInterval) * time.Second

	return &Bot{
		cfg:          cfg,
		chat:         chat,
		engine:       engine,
		store:        store,
		tracker:      tracker,
		logger:       logging.NewComponentLogger(logger, "bot"),
		pollTimeout:  pollTimeout,
		pageSize:     pageSize,
		fetchLimit:   fetchLimit,
		downloadDir:  strings.TrimSpace(cfg.Aria2.DownloadDir),
		historyPages: pagestate.NewRegistry[*history.Record](ttl, sweep, logger),
		searchPages:  pagestate.NewRegistry[*history.Record](ttl, sweep, logger),
		statusPages:  pagestate.NewRegistry[*aria2.Snapshot](ttl, sweep, logger),
	}
}

// Start registers the command menu and launches the poll loop along with the
// page state janitors.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.running = true
	b.cancel = cancel
	b.wg.Add(1)
	b.mu.Unlock()

	if err := b.historyPages.Start(runCtx); err != nil {
		b.logger.Warn("history page janitor failed to start", logging.Error(err))
	}
	if err := b.searchPages.Start(runCtx); err != nil {
		b.logger.Warn("search page janitor failed to start", logging.Error(err))
	}
	if err := b.statusPages.Start(runCtx); err != nil {
		b.logger.Warn("status page janitor failed to start", logging.Error(err))
	}

	setupCtx, cancelSetup := context.WithTimeout(runCtx, 10*time.Second)
	if err := b.chat.SetMyCommands(setupCtx, commandList); err != nil {
		logging.WarnWithContext(b.logger, "command menu registration failed; chat clients keep the stale menu", "setup_failed",
			logging.Error(err))
	}
	cancelSetup()

	go b.run(runCtx)
	return nil
}

// Stop terminates the poll loop and the janitors, waiting for both.
func (b *Bot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	b.running = false
	b.cancel = nil
	b.mu.Unlock()

	cancel()
	b.wg.Wait()
	b.historyPages.Stop()
	b.searchPages.Stop()
	b.statusPages.Stop()
}

func (b *Bot) run(ctx context.Context) {
	defer b.wg.Done()
	b.logger.Info("bot loop started", logging.Int("poll_timeout_seconds", b.pollTimeout))

	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := b.chat.GetUpdates(ctx, b.offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := pollRetryDelay
			if advertised, ok := services.RetryAfter(err); ok && advertised > 0 {
				wait = advertised
			}
			logging.WarnWithContext(b.logger, "update poll failed; backing off", "poll_failed",
				logging.Error(err),
				logging.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		for _, upd := range updates {
			if upd.UpdateID >= b.offset {
				b.offset = upd.UpdateID + 1
			}
			b.dispatch(ctx, upd)
		}
	}
}

// dispatch stamps the originating chat into the context so every log line
// downstream carries it, then routes to the matching handler.
func (b *Bot) dispatch(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		if upd.CallbackQuery.Message != nil {
			ctx = services.WithChatID(ctx, upd.CallbackQuery.Message.Chat.ID)
		}
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(services.WithChatID(ctx, upd.Message.Chat.ID), upd.Message)
	}
}

// reply sends a plain message, logging delivery failures instead of
// propagating them.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.send(ctx, chatID, text, nil)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboard) (telegram.MessageRef, bool) {
	ref, err := b.chat.SendMessage(ctx, chatID, text, keyboard)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, b.logger), "reply delivery failed; response dropped", "send_failed",
			logging.Error(err))
		return telegram.MessageRef{}, false
	}
	return ref, true
}

func (b *Bot) answer(ctx context.Context, callbackID, text string, showAlert bool) {
	if err := b.chat.AnswerCallbackQuery(ctx, callbackID, text, showAlert); err != nil {
		b.logger.Debug("callback acknowledgement failed", logging.Error(err))
	}
}

func senderID(msg *telegram.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func pageKey(family string, chatID int64) string {
	return family + ":" + strconv.FormatInt(chatID, 10)
}

// diskFree reports the free bytes on the filesystem holding path, or zero
// when the path is unset or unreadable.
func diskFree(path string) uint64 {
	if path == "" {
		return 0
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0
	}
	return stat.Bavail * uint64(stat.Bsize)
}
