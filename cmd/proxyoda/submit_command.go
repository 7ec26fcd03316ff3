package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"proxyoda/internal/config"
	"proxyoda/internal/history"
	"proxyoda/internal/jobplan"
	"proxyoda/internal/logging"
	"proxyoda/internal/manifest"
	"proxyoda/internal/notifications"
	"proxyoda/internal/preflight"
	"proxyoda/internal/presets"
	"proxyoda/internal/script"
	"proxyoda/internal/services"
	"proxyoda/internal/submission"
)

const (
	methodWebService = "webservice"
	methodScript     = "script"
)

type submitOptions struct {
	jobsFile string
	method   string
	dryRun   bool
	force    bool
	asJSON   bool
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue missing proxies in Adobe Media Encoder",
		Long: `Plan one job per original clip that lacks a proxy and submit them to AME.

With --jobs the plan comes from a YAML job file instead of a scan. The default
method posts each job to the AME web service; --method script writes an
ExtendScript batch and launches AME in console mode (AME must be closed).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			switch opts.method {
			case methodWebService, methodScript:
			default:
				return fmt.Errorf("unknown --method %q (want %s or %s)", opts.method, methodWebService, methodScript)
			}
			return runSubmit(cmd, ctx, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.jobsFile, "jobs", "", "YAML job file to submit instead of scanning")
	cmd.Flags().StringVar(&opts.method, "method", methodWebService, "Submission method: webservice or script")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the plan without submitting")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Plan jobs even when a proxy already exists")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output as JSON")
	return cmd
}

func runSubmit(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, opts submitOptions) error {
	runCtx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := ctx.loggerValue()

	store, err := presets.NewStoreFromConfig(cfg)
	if err != nil {
		return err
	}

	var (
		jobs    []manifest.JobDescriptor
		targets []string
		skipped []jobplan.Skip
	)
	if strings.TrimSpace(opts.jobsFile) != "" {
		jobs, err = jobplan.LoadFile(opts.jobsFile, store)
		if err != nil {
			return err
		}
	} else {
		if failures := failedChecks(preflight.Directories(cfg)); len(failures) > 0 {
			return services.Wrap(services.ErrFilesystem, "cli", "submit", strings.Join(failures, "; "), nil)
		}
		files, err := scanOriginals(runCtx, ctx, cfg)
		if err != nil {
			return err
		}
		planOpts := jobplan.OptionsFromConfig(cfg)
		planOpts.Force = opts.force
		plan := jobplan.Build(files, store, planOpts)
		jobs = plan.Jobs()
		skipped = plan.Skipped
		for _, planned := range plan.Planned {
			targets = append(targets, planned.TargetResolution())
		}
	}

	if opts.dryRun || len(jobs) == 0 {
		if opts.asJSON {
			return writeJSON(cmd, toJSONPlan(jobs, targets, skipped))
		}
		renderPlan(out, jobs, targets, skipped)
		return nil
	}

	lock, err := submission.AcquireRunLock(cfg.Paths.StateDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	defer logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "runs"), Pattern: "*.log"},
		logging.RetentionTarget{Dir: cfg.Paths.ScriptDir, Pattern: "process_jobs_*.jsx"},
	)

	if opts.method == methodScript {
		return submitScript(cmd, ctx, cfg, jobs, opts.asJSON)
	}
	return submitWebService(cmd, ctx, cfg, jobs, opts.asJSON)
}

func submitScript(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, jobs []manifest.JobDescriptor, asJSON bool) error {
	submitter := script.NewSubmitter(cfg,
		script.WithController(ctx.processController()),
		script.WithLogger(ctx.loggerValue()),
	)
	result, err := submitter.Submit(cmd.Context(), jobs)
	if err != nil {
		var missing *script.MissingFoldersError
		if errors.As(err, &missing) {
			return fmt.Errorf("%w (run `proxyoda folders` first)", err)
		}
		return err
	}
	if asJSON {
		return writeJSON(cmd, map[string]any{
			"script": result.ScriptPath,
			"app":    result.AppPath,
			"jobs":   result.JobCount,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", result.ScriptPath)
	fmt.Fprintf(out, "Launched %s in console mode with %d jobs\n", result.AppPath, result.JobCount)
	return nil
}

func submitWebService(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, jobs []manifest.JobDescriptor, asJSON bool) error {
	logger := ctx.loggerValue()
	client := ctx.ameClient(cfg)
	supervisor := ctx.supervisor(cfg, client)

	driverOpts := append(submission.FromConfig(cfg),
		submission.WithLogger(logger),
		submission.WithNotifier(notifications.NewService(cfg)),
	)
	if ctx.sleep != nil {
		driverOpts = append(driverOpts, submission.WithSleeper(ctx.sleep))
	}
	historyStore, err := history.Open(cfg.Paths.StateDir)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the history database to recreate it"),
			logging.String(logging.FieldImpact, "this run will not be recorded"),
		)
	} else {
		defer historyStore.Close()
		driverOpts = append(driverOpts, submission.WithRecorder(historyStore))
		pruneHistory(cmd.Context(), historyStore, cfg.Logging.RetentionDays, logger)
	}

	driver := submission.NewDriver(client, supervisor, driverOpts...)
	report, runErr := driver.RunAll(cmd.Context(), jobs)

	if asJSON {
		if err := writeJSON(cmd, toJSONReport(report, runErr)); err != nil {
			return err
		}
	} else {
		renderReport(cmd.OutOrStdout(), report)
	}

	if runErr != nil {
		return runErr
	}
	if !report.AllAccepted() {
		return fmt.Errorf("%d of %d jobs were not accepted", report.Counts.Failed(), len(report.Results))
	}
	return nil
}

func pruneHistory(ctx context.Context, store *history.Store, retentionDays int, logger *slog.Logger) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	if removed, err := store.Prune(ctx, cutoff); err == nil && removed > 0 {
		logger.Debug("pruned run history", logging.Args(logging.Int64("removed", removed))...)
	}
}

func failedChecks(results []preflight.Result) []string {
	var failures []string
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	return failures
}

// renderPlan prints planned jobs and skipped originals. targets is parallel
// to jobs and empty when the jobs came from a job file.
func renderPlan(out io.Writer, jobs []manifest.JobDescriptor, targets []string, skipped []jobplan.Skip) {
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs to submit")
	} else {
		rows := make([][]string, 0, len(jobs))
		for i, job := range jobs {
			target := "-"
			if i < len(targets) {
				target = targets[i]
			}
			rows = append(rows, []string{strconv.Itoa(i + 1), job.InputPath, job.OutputPath, job.PresetName, target})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Input", "Output", "Preset", "Target"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}
	if len(skipped) == 0 {
		return
	}
	rows := make([][]string, 0, len(skipped))
	for _, skip := range skipped {
		rows = append(rows, []string{skip.File.RelPath, skipLabel(skip.Reason), skip.Detail})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Skipped", "Reason", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
}

func renderReport(out io.Writer, report submission.Report) {
	if len(report.Results) == 0 {
		fmt.Fprintln(out, "No jobs submitted")
		return
	}
	rows := make([][]string, 0, len(report.Results))
	for _, r := range report.Results {
		detail := ""
		switch {
		case r.Err != nil:
			detail = r.Err.Error()
		case r.Final.JobID != "":
			detail = "AME job " + r.Final.JobID
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Index),
			r.Job.Label(),
			r.Job.PresetName,
			outcomeLabel(r.Outcome),
			strconv.Itoa(r.Attempts),
			detail,
		})
	}
	c := report.Counts
	footer := []string{"", fmt.Sprintf("%d accepted", c.Accepted), "", fmt.Sprintf("%d failed", c.Failed()), "", report.Duration().Round(time.Millisecond).String()}
	fmt.Fprintln(out, renderTableWithFooter(
		[]string{"#", "Clip", "Preset", "Outcome", "Attempts", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		footer,
	))
	fmt.Fprintf(out, "Run %s: %d accepted, %d busy, %d rejected, %d errored, %d skipped\n",
		report.RunID, c.Accepted, c.BusyExhausted, c.Rejected, c.Errored, c.Skipped)
}
