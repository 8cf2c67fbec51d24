package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/queue"
	"spool/internal/workflow"
	"spool/internal/ytdlp"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		title      string
		mediaKind  string
		quality    string
		container  string
		outputDir  string
		template   string
		order      string
		batchStart int
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Create a download queue from a playlist or channel URL",
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

			if outputDir != "" {
				outputDir, err = config.ExpandPath(outputDir)
				if err != nil {
					return err
				}
			}

			return ctx.withStore(func(store *queue.Store) error {
				ingestor := workflow.NewIngestor(store, ytdlp.New(logger), cfg, logger)
				q, added, err := ingestor.Ingest(cmd.Context(), workflow.IngestParams{
					SourceURL:        args[0],
					Title:            title,
					MediaKind:        mediaKind,
					Quality:          quality,
					Container:        container,
					OutputDir:        outputDir,
					FilenameTemplate: template,
					DownloadOrder:    order,
					BatchStart:       batchStart,
					BatchSize:        batchSize,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created queue %s: %s\n", shortID(q.ID), q.Title)
				fmt.Fprintf(out, "%d items queued; start with `spool run %s`\n", added, shortID(q.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Queue title (defaults to the playlist title)")
	cmd.Flags().StringVar(&mediaKind, "media", "", "Media kind: video or audio")
	cmd.Flags().StringVar(&quality, "quality", "", "Video quality cap, e.g. best or 1080p")
	cmd.Flags().StringVar(&container, "container", "", "Output container, e.g. mp4 or mkv")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Download directory for this queue")
	cmd.Flags().StringVar(&template, "template", "", "Filename template, e.g. \"{index} - {title}\"")
	cmd.Flags().StringVar(&order, "order", "", "Download order: playlist, reverse, newest, or oldest")
	cmd.Flags().IntVar(&batchStart, "batch-start", 0, "Skip this many pending items at the front of each run")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Process at most this many items per run (0 = all)")

	return cmd
}
