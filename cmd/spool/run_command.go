package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spool/internal/download"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/workflow"
	"spool/internal/ytdlp"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var downloadAll bool

	cmd := &cobra.Command{
		Use:   "run <queue>",
		Short: "Download a queue's pending items",
		Long: "Run processes a queue sequentially, applying the configured proxy\n" +
			"rotation and inter-item delays. Interrupted runs resume where they\n" +
			"left off on the next invocation.",
		Args: cobra.ExactArgs(1),
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

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				executor := download.NewExecutor(store, ytdlp.New(logger), cfg, logger)
				orchestrator := workflow.New(store, executor, notifications.NewService(cfg), cfg, logger)

				stats, err := orchestrator.Run(runCtx, q.ID, workflow.RunOptions{DownloadAll: downloadAll})
				out := cmd.OutOrStdout()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						fmt.Fprintf(out, "Interrupted after %d items; resume with `spool run %s`\n",
							stats.Attempted, shortID(q.ID))
					}
					return err
				}

				fmt.Fprintf(out, "Queue %s: %d completed, %d failed, %s downloaded in %s\n",
					stats.FinalStatus, stats.Completed, stats.Failed,
					humanize.Bytes(uint64(stats.BytesDownloaded)), stats.Duration.Round(time.Second))
				if stats.Recovered > 0 {
					fmt.Fprintf(out, "Recovered %d items stranded by a previous run\n", stats.Recovered)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&downloadAll, "all", false, "Re-download every non-skipped item instead of resuming")
	return cmd
}
