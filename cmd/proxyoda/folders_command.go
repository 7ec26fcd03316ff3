package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"proxyoda/internal/scan"
)

func newFoldersCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Mirror the original folder structure under the proxy directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			created, err := scan.MirrorFolders(cfg.Paths.OriginalDir, cfg.Paths.ProxyDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !quiet {
				for _, dir := range created {
					fmt.Fprintln(out, dir)
				}
			}
			fmt.Fprintf(out, "Created %d folders under %s\n", len(created), cfg.Paths.ProxyDir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")
	return cmd
}
