package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/history"
	"spool/internal/ipc"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/preflight"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// runIDLayout names log files by UTC start time so concurrent runs never
// collide and lexical order matches chronological order.
const runIDLayout = "20060102T150405.000Z"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the spool daemon runtime loop and blocks until SIGINT or
// SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, logPath, err := newRunLogger(cfg, opts)
	if err != nil {
		return err
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "spool.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	engine := aria2.NewConfiguredClient(cfg)
	chat := telegram.NewConfiguredClient(cfg)
	push := notifications.NewService(cfg)

	d, err := daemon.New(cfg, store, engine, chat, push, logger, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(cfg.Paths.Socket)
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	go logStartupChecks(signalCtx, logger, cfg, engine, chat)

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check the telegram token and instance lock"),
			logging.String(logging.FieldImpact, "bot and monitor are not running; control socket stays available"),
		)
	}

	<-signalCtx.Done()
	logger.Info("spool daemon shutting down")
	return nil
}

// newRunLogger builds the per-run logger, maintains the spool.log pointer,
// and prunes expired log files. It returns the path of this run's log file.
func newRunLogger(cfg *config.Config, opts Options) (*slog.Logger, string, error) {
	runID := time.Now().UTC().Format(runIDLayout)
	logPath := filepath.Join(cfg.Paths.LogDir, runLogName(runID))

	var sessionID, debugLogPath string
	if opts.Diagnostic {
		sessionID = uuid.NewString()
		debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return nil, "", fmt.Errorf("create debug log directory: %w", err)
		}
		debugLogPath = filepath.Join(debugDir, runLogName(runID))
	}

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		SessionID:        sessionID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		logger = attachDebugSink(logger, sessionID, debugLogPath)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update spool.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "spool-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "debug"), Pattern: "spool-*.log", Exclude: []string{debugLogPath}},
	)
	return logger, logPath, nil
}

// attachDebugSink tees every record into a verbose JSON log for diagnostic
// sessions. Failures degrade to the primary logger alone.
func attachDebugSink(logger *slog.Logger, sessionID, debugLogPath string) *slog.Logger {
	debugLogger, err := logging.New(logging.Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{debugLogPath},
		ErrorOutputPaths: []string{debugLogPath},
		Development:      true,
		SessionID:        sessionID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
	} else {
		logger = logging.TeeLogger(logger, debugLogger.Handler())
		if linkErr := ensureCurrentLogPointer(filepath.Dir(debugLogPath), debugLogPath); linkErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to update debug/spool.log link: %v\n", linkErr)
		}
	}
	logger.Info("diagnostic mode enabled",
		logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("debug_log_path", debugLogPath),
	)
	return logger
}

func runLogName(runID string) string {
	return "spool-" + runID + ".log"
}

// logStartupChecks records readiness probes without blocking startup; the
// control socket must come up before probe timeouts elapse.
func logStartupChecks(ctx context.Context, logger *slog.Logger, cfg *config.Config, engine aria2.Client, chat telegram.Client) {
	if logger == nil || cfg == nil {
		return
	}
	passed := 0
	results := preflight.RunAll(ctx, cfg, engine, chat)
	for _, result := range results {
		if result.Passed {
			passed++
			continue
		}
		logging.WarnWithContext(logger, "startup check failed", "startup_check_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run `spool status` for the full report"),
			logging.String(logging.FieldImpact, "downloads or notifications may not work until resolved"),
		)
	}
	logger.Info("startup checks complete",
		logging.String(logging.FieldEventType, "startup_checks"),
		logging.Int("passed", passed),
		logging.Int("failed", len(results)-passed),
	)
}

// ensureCurrentLogPointer points logDir/spool.log at the current run's file.
// Symlinks are preferred; filesystems without symlink support get a hard
// link instead.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "spool.log")
	if err := os.Remove(current); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if os.Symlink(target, current) == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
