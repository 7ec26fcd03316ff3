package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"proxyoda/internal/config"
	"proxyoda/internal/services/ame"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var discover bool
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show AME process and web service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			runCtx := cmd.Context()

			render := func() {
				renderStatus(runCtx, ctx, cfg, out, colorize)
				if discover {
					renderDiscovery(runCtx, ctx, cfg, out, colorize)
				}
			}

			render()
			if watch <= 0 {
				return nil
			}
			ticker := time.NewTicker(watch)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return nil
				case <-ticker.C:
					fmt.Fprintln(out)
					render()
				}
			}
		},
	}

	cmd.Flags().BoolVar(&discover, "discover", false, "Probe localhost and local interface addresses for AME web services")
	cmd.Flags().DurationVar(&watch, "watch", 0, "Refresh at this interval until interrupted")
	return cmd
}

func renderStatus(runCtx context.Context, ctx *commandContext, cfg *config.Config, out io.Writer, colorize bool) {
	client := ctx.ameClient(cfg)
	snap := ctx.supervisor(cfg, client).Snapshot(runCtx)

	for _, line := range renderSectionHeader("Adobe Media Encoder", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Application", runningKind(snap.AppRunning), runningText(snap.AppRunning), colorize))
	fmt.Fprintln(out, renderStatusLine("Web service console", runningKind(snap.ConsoleRunning), runningText(snap.ConsoleRunning), colorize))
	if snap.ConsolePath != "" {
		fmt.Fprintln(out, renderStatusLine("Console launcher", statusOK, snap.ConsolePath, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Console launcher", statusWarn, "not found", colorize))
	}

	endpoint := client.Endpoint().Address()
	if snap.StatusErr != nil {
		fmt.Fprintln(out, renderStatusLine("Web service", statusError, fmt.Sprintf("%s: %v", endpoint, snap.StatusErr), colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Web service", serverStateKind(snap.Status.State), fmt.Sprintf("%s: %s", endpoint, snap.Status.State), colorize))
}

func renderDiscovery(runCtx context.Context, ctx *commandContext, cfg *config.Config, out io.Writer, colorize bool) {
	for _, line := range renderSectionHeader("Discovery", colorize) {
		fmt.Fprintln(out, line)
	}
	results := ctx.ameClient(cfg).Discover(runCtx, ame.CandidateHosts())
	for _, result := range results {
		if result.Err != nil {
			fmt.Fprintln(out, renderStatusLine(result.Host, statusInfo, "no answer", colorize))
			continue
		}
		fmt.Fprintln(out, renderStatusLine(result.Host, serverStateKind(result.Status.State), string(result.Status.State), colorize))
	}
}

func runningText(running bool) string {
	if running {
		return "running"
	}
	return "not running"
}
