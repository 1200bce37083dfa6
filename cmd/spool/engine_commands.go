package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/ipc"
)

func newEngineCommands(ctx *commandContext) []*cobra.Command {
	var addDir string
	addCmd := &cobra.Command{
		Use:   "add <uri> [uri...]",
		Short: "Queue a download; extra URIs are mirrors of the same file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uris := make([]string, 0, len(args))
			for _, arg := range args {
				if trimmed := strings.TrimSpace(arg); trimmed != "" {
					uris = append(uris, trimmed)
				}
			}
			if len(uris) == 0 {
				return errors.New("no download URIs given")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add(uris, addDir)
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing add response")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued download %s\n", resp.GID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&addDir, "dir", "", "Download directory override")

	pauseCmd := newGIDCommand(ctx, "pause <gid>", "Pause a download", "Paused %s\n", func(client *ipc.Client, gid string) error {
		return client.Pause(gid)
	})
	unpauseCmd := newGIDCommand(ctx, "unpause <gid>", "Resume a paused download", "Resumed %s\n", func(client *ipc.Client, gid string) error {
		return client.Unpause(gid)
	})
	removeCmd := newGIDCommand(ctx, "remove <gid>", "Remove a download from the engine", "Removed %s\n", func(client *ipc.Client, gid string) error {
		return client.Remove(gid)
	})

	pauseAllCmd := &cobra.Command{
		Use:   "pauseall",
		Short: "Pause every active download",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.PauseAll(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Paused all downloads")
				return nil
			})
		},
	}

	unpauseAllCmd := &cobra.Command{
		Use:   "unpauseall",
		Short: "Resume every paused download",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.UnpauseAll(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Resumed all downloads")
				return nil
			})
		},
	}

	return []*cobra.Command{addCmd, pauseCmd, unpauseCmd, removeCmd, pauseAllCmd, unpauseAllCmd}
}

func newGIDCommand(ctx *commandContext, use, short, confirmation string, action func(*ipc.Client, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gid := strings.TrimSpace(args[0])
			if gid == "" {
				return errors.New("download gid is required")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := action(client, gid); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), confirmation, gid)
				return nil
			})
		},
	}
}
