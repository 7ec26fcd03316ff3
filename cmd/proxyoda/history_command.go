package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"proxyoda/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past submission runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.Paths.StateDir)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			runCtx := cmd.Context()

			if id := strings.TrimSpace(runID); id != "" {
				run, err := store.GetRun(runCtx, id)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", id)
				}
				records, err := store.RunResults(runCtx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Run %s started %s (%s)\n", run.RunID,
					run.Started.Local().Format(time.DateTime), run.Duration().Round(time.Millisecond))
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					detail := rec.Error
					if detail == "" && rec.AMEJobID != "" {
						detail = "AME job " + rec.AMEJobID
					}
					rows = append(rows, []string{
						strconv.Itoa(rec.Index),
						rec.InputPath,
						outcomeLabel(rec.Outcome),
						strconv.Itoa(rec.Attempts),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Input", "Outcome", "Attempts", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			}

			runs, err := store.Runs(runCtx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.RunID,
					humanize.Time(run.Started),
					run.Duration().Round(time.Second).String(),
					strconv.Itoa(run.Counts.Accepted),
					strconv.Itoa(run.Counts.Failed()),
					strconv.Itoa(run.Total()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Duration", "Accepted", "Failed", "Total"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Show per-job outcomes for a run")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list (0 for all)")
	return cmd
}
