package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spool/internal/daemonctl"
	"spool/internal/format"
	"spool/internal/history"
	"spool/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRestartCommand(ctx),
		newStatusCommand(ctx),
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the spool daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, diagnostic),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				fmt.Fprintln(stdout, requestedMessage(result))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Mirror DEBUG logs into a separate file under the log directory")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the spool daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}

			if result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stopping bot and monitor...")
			} else {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the spool daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, diagnostic),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				fmt.Fprintln(stdout, requestedMessage(result.Start))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Mirror DEBUG logs into a separate file under the log directory")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, engine, and history status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			printLines(stdout, renderSectionHeader("System Status", colorize))
			for _, check := range statusResp.Checks {
				fmt.Fprintln(stdout, renderStatusLine(check.Label, statusKindFromSeverity(check.Severity), check.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			if statusResp.Running {
				printLines(stdout, renderSectionHeader("Daemon", colorize))
				printLines(stdout, daemonInfoLines(statusResp, colorize))
				fmt.Fprintln(stdout)
			}

			if engine := statusResp.Engine; engine != nil && engine.Reachable {
				printLines(stdout, renderSectionHeader("Engine", colorize))
				printLines(stdout, engineInfoLines(engine, colorize))
				fmt.Fprintln(stdout)
			}

			printLines(stdout, renderSectionHeader("History", colorize))
			rows := buildHistoryStatusRows(statusResp.HistoryCounts)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "History is empty")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// requestedMessage picks the line to print when the start request was handed
// to a daemon that is already listening.
func requestedMessage(result daemonctl.StartResult) string {
	if msg := strings.TrimSpace(result.Message); msg != "" {
		return msg
	}
	return "Start request sent"
}

func daemonInfoLines(resp *ipc.StatusResponse, colorize bool) []string {
	uptime := (time.Duration(resp.UptimeSeconds) * time.Second).String()
	lines := []string{
		renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", resp.PID), colorize),
		renderStatusLine("Uptime", statusInfo, uptime, colorize),
		renderStatusLine("Tracked downloads", statusInfo, fmt.Sprintf("%d", resp.TrackedCards), colorize),
	}
	if resp.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, resp.LogPath, colorize))
	}
	if resp.HistoryDBPath != "" {
		lines = append(lines, renderStatusLine("Database", statusInfo, resp.HistoryDBPath, colorize))
	}
	return lines
}

func engineInfoLines(engine *ipc.EngineStatus, colorize bool) []string {
	tasks := fmt.Sprintf("%d active, %d waiting, %d stopped", engine.Active, engine.Waiting, engine.Stopped)
	return []string{
		renderStatusLine("Version", statusInfo, "aria2 "+engine.Version, colorize),
		renderStatusLine("Tasks", statusInfo, tasks, colorize),
		renderStatusLine("Download speed", statusInfo, format.Speed(engine.DownloadSpeed), colorize),
		renderStatusLine("Upload speed", statusInfo, format.Speed(engine.UploadSpeed), colorize),
	}
}

// buildHistoryStatusRows orders rows by the canonical status list so the
// table reads complete, failed, removed; unknown keys sort after them.
func buildHistoryStatusRows(counts map[string]int) [][]string {
	if len(counts) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(counts))
	rows := make([][]string, 0, len(counts))
	for _, status := range history.AllStatuses() {
		key := string(status)
		if count, ok := counts[key]; ok {
			rows = append(rows, []string{format.StatusLabel(key), fmt.Sprintf("%d", count)})
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(counts))
	for key := range counts {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		rows = append(rows, []string{format.StatusLabel(key), fmt.Sprintf("%d", counts[key])})
	}
	return rows
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{Diagnostic: diagnostic}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if path := strings.TrimSpace(*ctx.configFlag); path != "" {
			opts.ConfigPath = path
		}
	}
	return opts
}
