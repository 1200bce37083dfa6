package main

import (
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the spool daemon in the foreground (internal)",
		Hidden:       true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applySocketOverride(cfg, ctx.socketFlag)
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.resolvedLogLevel(cfg),
				Development: diagnostic,
				Diagnostic:  diagnostic,
			})
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Mirror DEBUG logs into a separate file under the log directory")
	return cmd
}

// applySocketOverride lets --socket redirect the daemon's control socket as
// well as the CLI's.
func applySocketOverride(cfg *config.Config, flag *string) {
	if cfg == nil || flag == nil {
		return
	}
	if socket := strings.TrimSpace(*flag); socket != "" {
		cfg.Paths.Socket = socket
	}
}
