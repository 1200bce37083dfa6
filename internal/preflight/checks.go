package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// lowDiskBytes is the free-space floor below which the disk check fails.
const lowDiskBytes = 1 << 30

const probeTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies that the filesystem holding path has free space
// above the low-disk floor. An unset path passes; aria2 then writes wherever
// its own configuration points and free space is not observable here.
func CheckDiskSpace(name, path string) Result {
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured"}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < lowDiskBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (low disk space: %s free)", path, humanize.IBytes(free))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", path, humanize.IBytes(free))}
}

// CheckEngine verifies that the aria2 RPC endpoint responds.
func CheckEngine(ctx context.Context, engine aria2.Client) Result {
	const name = "aria2"
	if engine == nil {
		return Result{Name: name, Detail: "no client configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	info, err := engine.GetVersion(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "aria2 " + info.Version}
}

// CheckTelegram verifies that the bot token authenticates.
func CheckTelegram(ctx context.Context, chat telegram.Client) Result {
	const name = "Telegram"
	if chat == nil {
		return Result{Name: name, Detail: "no client configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	me, err := chat.GetMe(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	if me.Username != "" {
		return Result{Name: name, Passed: true, Detail: "Bot @" + me.Username}
	}
	return Result{Name: name, Passed: true, Detail: "Bot " + me.FirstName}
}

// summarizeProbeError produces a human-readable summary for probe failures.
func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (endpoint unreachable)"
	}
	return err.Error()
}
