package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/format"
	"spool/internal/ipc"
)

type historyPageView struct {
	Records []ipc.HistoryRecord `json:"records"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var searchTerm string
	var clearAll bool
	var page int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse finished downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.TrimSpace(searchTerm)
			if clearAll && term != "" {
				return errors.New("--clear cannot be combined with --search")
			}
			if clearAll {
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.HistoryClear()
					if err != nil {
						return err
					}
					if resp == nil {
						return errors.New("missing history response")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history records\n", resp.Removed)
					return nil
				})
			}

			cfg := ctx.configValue()
			pageSize := 10
			if cfg != nil && cfg.Pagination.PageSize > 0 {
				pageSize = cfg.Pagination.PageSize
			}
			if page < 1 {
				page = 1
			}
			offset := (page - 1) * pageSize

			return ctx.withClient(func(client *ipc.Client) error {
				var records []ipc.HistoryRecord
				var total int
				if term != "" {
					resp, err := client.HistorySearch(term, offset, pageSize)
					if err != nil {
						return err
					}
					if resp == nil {
						return errors.New("missing history response")
					}
					records, total = resp.Records, resp.Total
				} else {
					resp, err := client.HistoryPage(offset, pageSize)
					if err != nil {
						return err
					}
					if resp == nil {
						return errors.New("missing history response")
					}
					records, total = resp.Records, resp.Total
				}

				if asJSON {
					return writeJSON(cmd, historyPageView{Records: records, Total: total, Page: page})
				}

				stdout := cmd.OutOrStdout()
				if total == 0 {
					if term != "" {
						fmt.Fprintf(stdout, "No history matches %q\n", term)
					} else {
						fmt.Fprintln(stdout, "History is empty")
					}
					return nil
				}
				totalPages := (total + pageSize - 1) / pageSize
				if len(records) == 0 {
					fmt.Fprintf(stdout, "Page %d is out of range (%d pages)\n", page, totalPages)
					return nil
				}

				table := renderTable(
					[]string{"Name", "Status", "Size", "Finished"},
					buildHistoryRows(records),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				fmt.Fprintf(stdout, "Page %d of %d (%d total)\n", page, totalPages, total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&searchTerm, "search", "", "Filter history by name substring")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all history records")
	cmd.Flags().IntVar(&page, "page", 1, "Page number, newest first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func buildHistoryRows(records []ipc.HistoryRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		detail := format.StatusLabel(rec.Status)
		if rec.Error != "" {
			detail = fmt.Sprintf("%s (%s)", detail, format.TruncateMiddle(rec.Error, 30))
		}
		rows = append(rows, []string{
			format.TruncateMiddle(rec.Name, 40),
			detail,
			format.Size(rec.SizeBytes),
			format.Timestamp(rec.FinishedAt),
		})
	}
	return rows
}
