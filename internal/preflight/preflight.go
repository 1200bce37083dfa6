package preflight

import (
	"context"
	"path/filepath"

	"spool/internal/config"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check against the given collaborators.
// Failures never abort the caller; the daemon logs them and the status
// command displays them.
func RunAll(ctx context.Context, cfg *config.Config, engine aria2.Client, chat telegram.Client) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Data directory", filepath.Dir(cfg.Database.Path)),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Download disk", cfg.Aria2.DownloadDir),
		CheckEngine(ctx, engine),
		CheckTelegram(ctx, chat),
	}
}
