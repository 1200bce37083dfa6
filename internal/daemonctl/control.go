package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"spool/internal/config"
	"spool/internal/history"
	"spool/internal/ipc"
	"spool/internal/preflight"
)

// probeInterval is the pause between socket polls while waiting for the
// daemon to come up or go away.
const probeInterval = 200 * time.Millisecond

// LaunchOptions carries the flags forwarded to a spawned daemon process.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	Diagnostic bool
}

// StartState classifies the outcome of a start request.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult reports how EnsureStarted satisfied the request.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// Launch spawns a detached daemon process running the hidden daemon command.
func Launch(executablePath string, opts LaunchOptions) error {
	exe := strings.TrimSpace(executablePath)
	if exe == "" {
		return errors.New("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if opts.Diagnostic {
		args = append(args, "--diagnostic")
	}

	child := exec.Command(exe, args...)
	if err := child.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	// Release so the daemon outlives this CLI invocation.
	return child.Process.Release()
}

// WaitForClient polls the IPC socket until the daemon accepts a connection,
// returning the connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
		}
		time.Sleep(probeInterval)
	}
}

// EnsureStarted connects to the daemon, launching the process first when the
// socket is not up, and asks it to start its services. Calling it against a
// daemon that is already running is harmless.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, launched, err := connectOrLaunch(socketPath, executablePath, opts, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()

	if status, statusErr := client.Status(); statusErr == nil && status != nil && status.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	return classifyStart(resp, launched), nil
}

func connectOrLaunch(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (*ipc.Client, bool, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		return client, false, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return nil, false, err
	}
	client, err := WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return nil, false, err
	}
	return client, true, nil
}

func classifyStart(resp *ipc.StartResponse, launched bool) StartResult {
	if resp == nil {
		return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
	}
	message := strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		return StartResult{State: StartStateStarted, Launched: launched, Message: message}
	case strings.EqualFold(message, "daemon already running"):
		if launched {
			return StartResult{State: StartStateStarted, Launched: true, Message: message}
		}
		return StartResult{State: StartStateAlreadyRunning, Message: message}
	case message != "":
		return StartResult{State: StartStateRequested, Launched: launched, Message: message}
	default:
		return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
	}
}

// WaitForShutdown blocks until the daemon socket stops answering or its
// status reports not running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		down, err := daemonDown(socketPath)
		if down {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		if time.Now().After(deadline) {
			if lastErr == nil {
				lastErr = errors.New("timeout waiting for shutdown")
			}
			return fmt.Errorf("daemon did not stop: %w", lastErr)
		}
		time.Sleep(probeInterval)
	}
}

// daemonDown probes the socket once, reporting true when the daemon is
// unreachable or says it has stopped.
func daemonDown(socketPath string) (bool, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return true, nil
		}
		return false, err
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return false, err
	}
	return status != nil && !status.Running, nil
}

// ProcessInfo reports whether the daemon socket answers and the PID it
// advertises.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()

	status, err := client.Status()
	switch {
	case err != nil:
		return true, 0, err
	case status == nil:
		return true, 0, nil
	default:
		return true, status.PID, nil
	}
}

// DeriveLogDir resolves the daemon's log directory, preferring paths the
// daemon reported over configuration defaults.
func DeriveLogDir(lockPath, logPath string, cfg *config.Config) string {
	for _, hint := range []string{lockPath, logPath} {
		if hint != "" {
			return filepath.Dir(hint)
		}
	}
	if cfg != nil {
		return strings.TrimSpace(cfg.Paths.LogDir)
	}
	return ""
}

// ForceKillProcess sends SIGKILL to the daemon identified by the pid file,
// falling back to fallbackPID when the file is absent, and removes the stale
// pid and lock files. It refuses to target the calling process.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		pid = fallbackPID
	}
	if pid <= 0 {
		return 0, fmt.Errorf("no daemon pid recorded in %s", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill own process (pid %d)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill process %d: %w", pid, err)
	}

	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %s: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// readPIDFile returns the pid recorded in path, or 0 when the file is absent
// or holds no usable value.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// ErrDaemonNotRunning indicates the control socket is not answering.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult reports how the daemon was brought down.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult combines the stop and start halves of a restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate asks the daemon to stop its services and then terminates
// the process, escalating to SIGKILL when it is still alive after
// gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}

	var lockPath, logPath string
	var pid int
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		lockPath, logPath, pid = status.LockPath, status.LogPath, status.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid, StopAcknowledged: resp != nil && resp.Stopped}

	_ = WaitForShutdown(socketPath, gracePeriod)
	alive, livePID, aliveErr := ProcessInfo(socketPath)
	if aliveErr != nil || !alive {
		return result, nil
	}
	if livePID != 0 {
		pid = livePID
	}

	logDir := DeriveLogDir(lockPath, logPath, cfg)
	if logDir == "" {
		return result, errors.New("unable to determine daemon log directory")
	}
	killed, killErr := ForceKillProcess(
		filepath.Join(logDir, "spool.pid"),
		filepath.Join(logDir, "spool.lock"),
		pid,
	)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// Restart performs a stop, tolerating a daemon that is not running, followed
// by EnsureStarted.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stop, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	start, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stop,
		Start:      start,
	}, nil
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks for
// history counts and readiness checks.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	statusResp := &ipc.StatusResponse{}

	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			statusResp = resp
		}
	}

	if !statusResp.Running {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		store, openErr := history.Open(cfg)
		if openErr == nil {
			stats, statsErr := store.Stats(queryCtx)
			_ = store.Close()
			if statsErr == nil {
				counts := make(map[string]int, len(stats))
				for status, count := range stats {
					counts[string(status)] = count
				}
				statusResp.HistoryCounts = counts
			}
		}
		if statusResp.HistoryDBPath == "" {
			statusResp.HistoryDBPath = cfg.Database.Path
		}
	}

	statusResp.Checks = buildChecks(ctx, cfg, statusResp)
	return statusResp, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// buildChecks assembles readiness lines. A running daemon already probed the
// engine, so only local environment checks run client-side; when the daemon
// is down every check runs against the configuration.
func buildChecks(ctx context.Context, cfg *config.Config, resp *ipc.StatusResponse) []ipc.StatusCheck {
	lines := make([]ipc.StatusCheck, 0, 8)

	if resp.Running {
		lines = append(lines, ipc.StatusCheck{Label: "Spool", Severity: "ok", Detail: "Running"})
		if resp.Engine != nil {
			if resp.Engine.Reachable {
				lines = append(lines, ipc.StatusCheck{Label: "aria2", Severity: "ok", Detail: "aria2 " + resp.Engine.Version})
			} else {
				lines = append(lines, ipc.StatusCheck{Label: "aria2", Severity: "error", Detail: "RPC endpoint unreachable"})
			}
		}
		for _, result := range []preflight.Result{
			preflight.CheckDirectoryAccess("Data directory", filepath.Dir(cfg.Database.Path)),
			preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
			preflight.CheckDiskSpace("Download disk", cfg.Aria2.DownloadDir),
		} {
			lines = append(lines, checkLine(result))
		}
	} else {
		lines = append(lines, ipc.StatusCheck{Label: "Spool", Severity: "warn", Detail: "Not running (run `spool start`)"})
		for _, result := range preflight.RunAllFromConfig(ctx, cfg) {
			lines = append(lines, checkLine(result))
		}
	}

	lines = append(lines, notificationsCheck(cfg))
	return lines
}

func checkLine(result preflight.Result) ipc.StatusCheck {
	severity := "error"
	if result.Passed {
		severity = "ok"
	}
	return ipc.StatusCheck{Label: result.Name, Severity: severity, Detail: result.Detail}
}

func notificationsCheck(cfg *config.Config) ipc.StatusCheck {
	targets := len(cfg.NotifyTargets())
	ntfy := strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""
	switch {
	case targets > 0 && ntfy:
		return ipc.StatusCheck{Label: "Notifications", Severity: "ok", Detail: fmt.Sprintf("%d Telegram chat(s) + ntfy", targets)}
	case targets > 0:
		return ipc.StatusCheck{Label: "Notifications", Severity: "ok", Detail: fmt.Sprintf("%d Telegram chat(s)", targets)}
	case ntfy:
		return ipc.StatusCheck{Label: "Notifications", Severity: "ok", Detail: "ntfy only"}
	default:
		return ipc.StatusCheck{Label: "Notifications", Severity: "warn", Detail: "Not configured"}
	}
}
