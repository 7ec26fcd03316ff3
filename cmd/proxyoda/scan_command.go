package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"proxyoda/internal/config"
	"proxyoda/internal/scan"
	"proxyoda/internal/services"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List original clips with resolution and proxy status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			files, err := scanOriginals(cmd.Context(), ctx, cfg)
			if err != nil {
				return err
			}

			proxies := make([]string, len(files))
			for i, f := range files {
				proxies[i], _ = scan.FindProxy(f, cfg.Paths.ProxyDir, cfg.Scan.Extensions)
			}

			if asJSON {
				clips := make([]jsonClip, 0, len(files))
				for i, f := range files {
					clips = append(clips, toJSONClip(f, proxies[i]))
				}
				return writeJSON(cmd, clips)
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No supported clips under %s\n", cfg.Paths.OriginalDir)
				return nil
			}
			rows := make([][]string, 0, len(files))
			missing := 0
			for i, f := range files {
				if proxies[i] == "" {
					missing++
				}
				rows = append(rows, []string{
					f.RelPath,
					f.Resolution,
					formatFrameRate(f.FrameRate),
					humanize.IBytes(uint64(f.Size)),
					yesNo(proxies[i] != ""),
				})
			}
			footer := []string{fmt.Sprintf("%d clips", len(files)), "", "", "", fmt.Sprintf("%d missing", missing)}
			fmt.Fprintln(out, renderTableWithFooter(
				[]string{"Clip", "Resolution", "FPS", "Size", "Proxy"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				footer,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func scanOriginals(runCtx context.Context, ctx *commandContext, cfg *config.Config) ([]scan.File, error) {
	if cfg.Paths.OriginalDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "scan", "paths.original_dir is not set", nil)
	}
	return scan.Originals(runCtx, cfg.Paths.OriginalDir, scan.Options{
		Extensions:  cfg.Scan.Extensions,
		Concurrency: cfg.Scan.ProbeConcurrency,
		Prober:      ctx.mediaProber(cfg),
		ExcludeDirs: []string{cfg.Paths.ProxyDir},
		Logger:      ctx.loggerValue(),
	})
}

func formatFrameRate(fps float64) string {
	if fps <= 0 {
		return "-"
	}
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
