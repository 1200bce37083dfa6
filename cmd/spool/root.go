package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		socketFlag   string
		configFlag   string
		logLevelFlag string
	)
	ctx := newCommandContext(&socketFlag, &configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "spool",
		Short:         "Telegram frontend for the aria2 download engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&socketFlag, "socket", "", "Path to the spool daemon socket")
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	commands := []*cobra.Command{
		newDaemonRunCommand(ctx),
		newDownloadsCommand(ctx),
		newHistoryCommand(ctx),
		newLogsCommand(ctx),
		newTestNotifyCommand(ctx),
		newConfigCommand(ctx),
		newVersionCommand(),
	}
	commands = append(commands, newDaemonCommands(ctx)...)
	commands = append(commands, newEngineCommands(ctx)...)
	rootCmd.AddCommand(commands...)

	return rootCmd
}
