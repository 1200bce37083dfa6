package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spool/internal/format"
	"spool/internal/ipc"
)

func newDownloadsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "downloads",
		Short: "List active, waiting, and recently stopped downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Downloads()
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing downloads response")
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No downloads")
					return nil
				}
				table := renderTable(
					[]string{"GID", "Name", "Status", "Progress", "Speed", "ETA", "Size"},
					buildDownloadRows(resp.Items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func buildDownloadRows(items []ipc.DownloadItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		speed := ""
		if item.DownloadSpeed > 0 {
			speed = format.Speed(item.DownloadSpeed)
		}
		rows = append(rows, []string{
			item.GID,
			format.TruncateMiddle(item.Name, 40),
			format.StatusLabel(item.Status),
			fmt.Sprintf("%.1f%%", item.Progress),
			speed,
			format.ETA(time.Duration(item.ETASeconds) * time.Second),
			format.Size(item.TotalLength),
		})
	}
	return rows
}
