package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"spool/internal/pacing"
)

func newProxiesCommand(ctx *commandContext) *cobra.Command {
	proxiesCmd := &cobra.Command{
		Use:   "proxies",
		Short: "Inspect and validate the configured proxy pool",
	}

	proxiesCmd.AddCommand(newProxiesListCommand(ctx))
	proxiesCmd.AddCommand(newProxiesValidateCommand(ctx))

	return proxiesCmd
}

func newProxiesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective proxy pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			proxies, err := pacing.EffectiveProxies(cfg.Pacing)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(proxies) == 0 {
				fmt.Fprintln(out, "No proxies configured; downloads connect directly with inter-item delays")
				return nil
			}
			for i, proxy := range proxies {
				fmt.Fprintf(out, "%3d  %s\n", i+1, proxy)
			}
			if cfg.Pacing.RotationEnabled {
				fmt.Fprintf(out, "Rotation enabled, switching every %d downloads\n", cfg.Pacing.RotationFrequency)
			} else {
				fmt.Fprintln(out, "Rotation disabled; the first proxy handles every download")
			}
			return nil
		},
	}
}

func newProxiesValidateCommand(ctx *commandContext) *cobra.Command {
	var probeURL string
	var prune bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Probe every proxy and report which ones work",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			proxies, err := pacing.EffectiveProxies(cfg.Pacing)
			if err != nil {
				return err
			}
			if len(proxies) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No proxies configured")
				return nil
			}

			if probeURL == "" {
				probeURL = cfg.Pacing.ValidateURL
			}

			probeCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results := pacing.ValidateProxies(probeCtx, proxies, pacing.ValidateOptions{
				ProbeURL: probeURL,
				Timeout:  time.Duration(cfg.Pacing.ValidateTimeout) * time.Second,
				Workers:  cfg.Pacing.ValidateWorkers,
				Logger:   logger,
			})

			rows := make([][]string, 0, len(results))
			working := make([]string, 0, len(results))
			for _, result := range results {
				state := "failed"
				latency := "-"
				detail := ""
				if result.OK {
					working = append(working, result.Proxy)
					state = "ok"
					latency = result.Latency.Round(time.Millisecond).String()
				} else if result.Err != nil {
					detail = result.Err.Error()
				}
				rows = append(rows, []string{result.Proxy, state, latency, detail})
			}

			out := cmd.OutOrStdout()
			table := renderTable([]string{"Proxy", "State", "Latency", "Detail"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
			fmt.Fprintln(out, table)
			fmt.Fprintf(out, "%d of %d proxies healthy\n", len(working), len(results))

			if prune {
				if cfg.Pacing.ProxyFile == "" {
					return fmt.Errorf("--prune requires pacing.proxy_file to be configured")
				}
				if err := pacing.SaveProxies(cfg.Pacing.ProxyFile, working); err != nil {
					return err
				}
				fmt.Fprintf(out, "Rewrote %s with %d working proxies\n", cfg.Pacing.ProxyFile, len(working))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&probeURL, "url", "", "Probe URL (defaults to pacing.validate_url)")
	cmd.Flags().BoolVar(&prune, "prune", false, "Rewrite the proxy file keeping only working proxies")
	return cmd
}
