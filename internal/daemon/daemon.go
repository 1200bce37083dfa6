package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"spool/internal/bot"
	"spool/internal/config"
	"spool/internal/history"
	"spool/internal/logging"
	"spool/internal/monitor"
	"spool/internal/notifications"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

const engineProbeTimeout = 5 * time.Second

// Daemon owns the long-running components and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *history.Store
	engine aria2.Client
	chat   telegram.Client
	push   notifications.Service

	monitor  *monitor.Monitor
	notifier *notifications.Notifier
	bot      *bot.Bot

	logPath  string
	lockPath string
	lock     *flock.Flock

	startedAt atomic.Int64
	running   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// EngineStatus summarizes the aria2 endpoint as seen from the daemon.
type EngineStatus struct {
	Reachable     bool
	Version       string
	Active        int
	Waiting       int
	Stopped       int
	DownloadSpeed int64
	UploadSpeed   int64
}

// Status is a point-in-time view of the daemon runtime.
type Status struct {
	Running       bool
	PID           int
	StartedAt     time.Time
	TrackedCards  int
	HistoryCounts map[history.Status]int
	HistoryDBPath string
	LockPath      string
	LogPath       string
	Engine        *EngineStatus
}

// New constructs a daemon and wires the monitor, notifier, and bot around the
// shared store and service clients. The bot reports new download cards to the
// monitor so live progress edits begin on the next cycle.
func New(cfg *config.Config, store *history.Store, engine aria2.Client, chat telegram.Client, push notifications.Service, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || engine == nil || chat == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, engine, chat client, and logger")
	}
	if push == nil {
		push = notifications.NewService(cfg)
	}

	overrides := cfg.Logging.ComponentOverrides
	mon := monitor.NewMonitor(cfg, store, engine, chat, logging.ForComponent(logger, overrides, "monitor"))
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		engine:   engine,
		chat:     chat,
		push:     push,
		monitor:  mon,
		notifier: notifications.NewNotifier(cfg, store, engine, chat, push, logging.ForComponent(logger, overrides, "notifier")),
		bot:      bot.NewBot(cfg, store, engine, chat, mon, logging.ForComponent(logger, overrides, "bot")),
		logPath:  logPath,
		lockPath: filepath.Join(cfg.Paths.LogDir, "spool.lock"),
	}
	d.lock = flock.New(d.lockPath)
	return d, nil
}

// Start acquires the instance lock and brings up the components. The bot
// starts last so commands only arrive once tracking and notifications work.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another spool daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.monitor.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start monitor: %w", err)
	}
	if err := d.notifier.Start(d.ctx); err != nil {
		d.monitor.Stop()
		d.abortStart()
		return fmt.Errorf("start notifier: %w", err)
	}
	if err := d.bot.Start(d.ctx); err != nil {
		d.notifier.Stop()
		d.monitor.Stop()
		d.abortStart()
		return fmt.Errorf("start bot: %w", err)
	}

	d.startedAt.Store(time.Now().Unix())
	d.running.Store(true)
	d.logger.Info("spool daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (d *Daemon) abortStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	_ = d.lock.Unlock()
}

// Stop shuts the components down in reverse start order and releases the
// instance lock. Safe to call when not running.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.bot.Stop()
	d.notifier.Stop()
	d.monitor.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "daemon lock release failed", "daemon_lock_release_failed",
			logging.Error(err))
	}
	d.ctx = nil
	d.startedAt.Store(0)
	d.running.Store(false)
	d.logger.Info("spool daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close stops the daemon and releases the history store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LogPath returns the active run log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status reports the current runtime view. Engine reachability is probed live
// with a short timeout; history counts come from the store.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		TrackedCards:  d.monitor.Tracked(),
		HistoryDBPath: d.store.Path(),
		LockPath:      d.lockPath,
		LogPath:       d.logPath,
	}
	if started := d.startedAt.Load(); started > 0 {
		status.StartedAt = time.Unix(started, 0)
	}
	if counts, err := d.store.Stats(ctx); err == nil {
		status.HistoryCounts = counts
	}
	status.Engine = d.engineStatus(ctx)
	return status
}

func (d *Daemon) engineStatus(ctx context.Context) *EngineStatus {
	probeCtx, cancel := context.WithTimeout(ctx, engineProbeTimeout)
	defer cancel()

	stat, err := d.engine.GetGlobalStat(probeCtx)
	if err != nil {
		return &EngineStatus{}
	}
	engine := &EngineStatus{
		Reachable:     true,
		Active:        stat.NumActive,
		Waiting:       stat.NumWaiting,
		Stopped:       stat.NumStopped,
		DownloadSpeed: stat.DownloadSpeed,
		UploadSpeed:   stat.UploadSpeed,
	}
	if version, err := d.engine.GetVersion(probeCtx); err == nil {
		engine.Version = version.Version
	}
	return engine
}
