package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"proxyoda/internal/presets"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage AME export presets (.epr)",
	}

	presetsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List presets in the preset directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := presetStore(ctx)
			if err != nil {
				return err
			}
			list, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintf(out, "No presets in %s\n", store.Dir())
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, p := range list {
				rows = append(rows, []string{p.Name, humanize.IBytes(uint64(p.Size)), humanize.Time(p.ModTime)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Preset", "Size", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	})

	presetsCmd.AddCommand(&cobra.Command{
		Use:   "path [name]",
		Short: "Print the preset directory, or the path of a named preset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := presetStore(ctx)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), store.Dir())
				return nil
			}
			path, err := store.Resolve(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	presetsCmd.AddCommand(&cobra.Command{
		Use:   "import <file.epr>",
		Short: "Copy an exported preset into the preset directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := presetStore(ctx)
			if err != nil {
				return err
			}
			path, err := store.Import(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported preset to %s\n", path)
			return nil
		},
	})

	return presetsCmd
}

func presetStore(ctx *commandContext) (*presets.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return presets.NewStoreFromConfig(cfg)
}
