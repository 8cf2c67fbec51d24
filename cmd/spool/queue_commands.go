package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spool/internal/queue"
	"spool/internal/workflow"
	"spool/internal/ytdlp"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage download queues",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueItemsCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueSkipCommand(ctx))
	queueCmd.AddCommand(newQueueUnskipCommand(ctx))
	queueCmd.AddCommand(newQueueRefreshCommand(ctx))
	queueCmd.AddCommand(newQueueBatchCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				queues, err := store.ListQueues(cmd.Context())
				if err != nil {
					return err
				}
				if len(queues) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No queues")
					return nil
				}

				rows := make([][]string, 0, len(queues))
				for _, q := range queues {
					counts, err := store.CountItems(cmd.Context(), q.ID)
					if err != nil {
						return err
					}
					rows = append(rows, []string{
						shortID(q.ID),
						q.Title,
						string(q.Status),
						strconv.Itoa(counts.Completed),
						strconv.Itoa(counts.Remaining()),
						strconv.Itoa(counts.Failed),
						formatAge(q.CreatedAt),
					})
				}

				table := renderTable(
					[]string{"ID", "Title", "Status", "Done", "Remaining", "Failed", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <queue>",
		Short: "Show one queue's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				q, err := resolveQueueRef(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				counts, err := store.CountItems(cmd.Context(), q.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queue:  %s (%s)\n", q.Title, shortID(q.ID))
				fmt.Fprintf(out, "Source: %s\n", q.SourceURL)
				fmt.Fprintf(out, "Status: %s\n", q.Status)
				if q.BatchSize > 0 || q.BatchStart > 0 {
					fmt.Fprintf(out, "Batch:  start %d, size %d\n", q.BatchStart, q.BatchSize)
				}

				rows := [][]string{
					{"pending", strconv.Itoa(counts.Pending)},
					{"downloading", strconv.Itoa(counts.Downloading)},
					{"completed", strconv.Itoa(counts.Completed)},
					{"failed", strconv.Itoa(counts.Failed)},
					{"skipped", strconv.Itoa(counts.Skipped)},
					{"total", strconv.Itoa(counts.Total)},
				}
				table := renderTable([]string{"Status", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

func newQueueItemsCommand(ctx *commandContext) *cobra.Command {
	var filterStatuses []string

	cmd := &cobra.Command{
		Use:   "items <queue>",
		Short: "List a queue's items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, raw := range filterStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				q, err := resolveQueueRef(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				items, err := store.ListItems(cmd.Context(), q.ID, statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No items")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					title := item.Title
					if title == "" {
						title = item.ExternalID
					}
					rows = append(rows, []string{
						strconv.Itoa(item.Position + 1),
						shortID(item.ID),
						title,
						string(item.Status),
						strconv.Itoa(item.Attempts),
						formatSize(item.FileSizeBytes),
						orDash(item.ErrorKind),
					})
				}

				table := renderTable(
					[]string{"#", "ID", "Title", "Status", "Attempts", "Size", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&filterStatuses, "status", "s", nil, "Filter by item status (repeatable)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <queue>",
		Short: "Return failed items to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				q, err := resolveQueueRef(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				updated, err := store.ResetFailedToPending(cmd.Context(), q.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed items\n", updated)
				return nil
			})
		},
	}
}

func newQueueSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <queue> <position>...",
		Short: "Exclude items from future runs",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				return setSkipped(cmd, store, args[0], args[1:], true)
			})
		},
	}
}

func newQueueUnskipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unskip <queue> <position>...",
		Short: "Return skipped items to pending",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				return setSkipped(cmd, store, args[0], args[1:], false)
			})
		},
	}
}

// setSkipped toggles the skip flag for the 1-based positions shown by
// `queue items`.
func setSkipped(cmd *cobra.Command, store *queue.Store, queueRef string, positionArgs []string, skipped bool) error {
	q, err := resolveQueueRef(cmd.Context(), store, queueRef)
	if err != nil {
		return err
	}
	items, err := store.ListItems(cmd.Context(), q.ID)
	if err != nil {
		return err
	}
	byPosition := make(map[int]*queue.Item, len(items))
	for _, item := range items {
		byPosition[item.Position+1] = item
	}

	out := cmd.OutOrStdout()
	verb := "Skipped"
	if !skipped {
		verb = "Restored"
	}
	for _, arg := range positionArgs {
		position, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid position %q", arg)
		}
		item, ok := byPosition[position]
		if !ok {
			return fmt.Errorf("no item at position %d", position)
		}
		if err := store.SetSkipped(cmd.Context(), item.ID, skipped); err != nil {
			return err
		}
		title := item.Title
		if title == "" {
			title = item.ExternalID
		}
		fmt.Fprintf(out, "%s item %d: %s\n", verb, position, title)
	}
	return nil
}

func newQueueRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <queue>",
		Short: "Re-resolve the source URL and append new entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				q, err := resolveQueueRef(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				ingestor := workflow.NewIngestor(store, ytdlp.New(logger), cfg, logger)
				added, err := ingestor.Refresh(cmd.Context(), q)
				if err != nil {
					return err
				}
				if added == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No new entries")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d new items\n", added)
				return nil
			})
		},
	}
}

func newQueueBatchCommand(ctx *commandContext) *cobra.Command {
	var start, size int

	cmd := &cobra.Command{
		Use:   "batch <queue>",
		Short: "Set the pending window processed per run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				q, err := resolveQueueRef(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if err := store.UpdateQueueBatch(cmd.Context(), q.ID, start, size); err != nil {
					return err
				}
				if size == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Queue %s now processes all pending items from offset %d\n",
						shortID(q.ID), start)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Queue %s now processes %d items per run from offset %d\n",
						shortID(q.ID), size, start)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "Skip this many pending items at the front of each run")
	cmd.Flags().IntVar(&size, "size", 0, "Process at most this many items per run (0 = all)")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <queue>",
		Short: "Delete a queue and all of its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				q, err := resolveQueueRef(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if err := store.DeleteQueue(cmd.Context(), q.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed queue %s: %s\n", shortID(q.ID), q.Title)
				return nil
			})
		},
	}
}
