package preflight

import (
	"context"

	"spool/internal/config"
	"spool/internal/services/aria2"
	"spool/internal/services/telegram"
)

// RunAllFromConfig builds throwaway clients from cfg and runs every check.
// The status command uses this when the daemon is not running and no live
// clients exist to borrow.
func RunAllFromConfig(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return RunAll(ctx, cfg, aria2.NewConfiguredClient(cfg), telegram.NewConfiguredClient(cfg))
}
