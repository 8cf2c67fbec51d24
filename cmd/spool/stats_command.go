package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spool/internal/queue"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily download totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context(), days)
				if err != nil {
					return err
				}
				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No download activity recorded")
					return nil
				}

				rows := make([][]string, 0, len(stats))
				var completed, failed int
				var bytes int64
				for _, stat := range stats {
					rows = append(rows, []string{
						stat.Date,
						strconv.Itoa(stat.ItemsCompleted),
						strconv.Itoa(stat.ItemsFailed),
						formatSize(stat.BytesDownloaded),
					})
					completed += stat.ItemsCompleted
					failed += stat.ItemsFailed
					bytes += stat.BytesDownloaded
				}

				out := cmd.OutOrStdout()
				table := renderTable([]string{"Date", "Completed", "Failed", "Downloaded"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight})
				fmt.Fprintln(out, table)
				fmt.Fprintf(out, "Total: %d completed, %d failed, %s downloaded\n",
					completed, failed, formatSize(bytes))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Number of days to show")
	return cmd
}
