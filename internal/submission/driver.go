package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"proxyoda/internal/config"
	"proxyoda/internal/encoderctl"
	"proxyoda/internal/logging"
	"proxyoda/internal/manifest"
	"proxyoda/internal/services"
	"proxyoda/internal/services/ame"
)

// Submitter performs a single POST /job attempt.
type Submitter interface {
	Submit(ctx context.Context, job manifest.JobDescriptor) ame.Result
	Endpoint() ame.Endpoint
}

// ServiceStarter brings the AME web service up before the first job.
type ServiceStarter interface {
	EnsureRunning(ctx context.Context) (encoderctl.StartResult, error)
}

// Recorder persists the final report of a run.
type Recorder interface {
	RecordRun(ctx context.Context, report Report) error
}

// Notifier receives run lifecycle events.
type Notifier interface {
	NotifyRunStarted(ctx context.Context, count int) error
	NotifyRunCompleted(ctx context.Context, accepted, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logging.NewComponentLogger(logger, "submission")
	}
}

// WithCooldown sets the pause inserted between consecutive jobs.
func WithCooldown(cooldown time.Duration) Option {
	return func(d *Driver) {
		if cooldown >= 0 {
			d.cooldown = cooldown
		}
	}
}

// WithStopOnFatal skips the remaining jobs after an offline or transport
// failure instead of attempting them.
func WithStopOnFatal(stop bool) Option {
	return func(d *Driver) {
		d.stopOnFatal = stop
	}
}

// WithSleeper replaces the context-aware sleep used for busy delays and
// cooldowns (primarily for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(d *Driver) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// WithRecorder attaches a history recorder.
func WithRecorder(recorder Recorder) Option {
	return func(d *Driver) {
		d.recorder = recorder
	}
}

// WithNotifier attaches a notifier.
func WithNotifier(notifier Notifier) Option {
	return func(d *Driver) {
		d.notifier = notifier
	}
}

// WithRunLogDir tees each run's log output into <dir>/runs/<run_id>.log.
func WithRunLogDir(dir string) Option {
	return func(d *Driver) {
		d.runLogDir = dir
	}
}

// FromConfig returns the options derived from the [webservice] section.
func FromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithCooldown(cfg.WebService.Cooldown()),
		WithStopOnFatal(cfg.WebService.StopOnFatal),
		WithRunLogDir(cfg.Paths.LogDir),
	}
}

// Driver submits jobs sequentially with busy retry and cooldown.
type Driver struct {
	client      Submitter
	starter     ServiceStarter
	logger      *slog.Logger
	cooldown    time.Duration
	stopOnFatal bool
	sleep       func(context.Context, time.Duration) error
	now         func() time.Time
	recorder    Recorder
	notifier    Notifier
	runLogDir   string
	newRunID    func() string
}

// NewDriver constructs a driver. starter may be nil when the service is
// managed elsewhere.
func NewDriver(client Submitter, starter ServiceStarter, opts ...Option) *Driver {
	d := &Driver{
		client:   client,
		starter:  starter,
		logger:   logging.NewComponentLogger(nil, "submission"),
		cooldown: time.Second,
		sleep:    sleepContext,
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunAll submits jobs in order and returns the run report. The returned error
// is non-nil only when the run could not proceed as a whole: the service
// failed to come up or ctx was cancelled. Per-job failures are reported in
// the Report.
func (d *Driver) RunAll(ctx context.Context, jobs []manifest.JobDescriptor) (Report, error) {
	report := Report{RunID: d.newRunID(), Started: d.now()}
	ctx = services.WithRunID(ctx, report.RunID)

	logger, closeLog, err := logging.NewRunLogger(d.logger, d.runLogDir, report.RunID)
	if err != nil {
		logging.WarnWithContext(d.logger, "run log unavailable", "run_log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run details are only in the main log"),
		)
		logger, closeLog = d.logger, func() error { return nil }
	}
	defer func() { _ = closeLog() }()
	logger = logging.WithContext(ctx, logger)

	if len(jobs) == 0 {
		report.Finished = d.now()
		logger.Info("no jobs to submit")
		return report, nil
	}

	logger.Info("submission run started",
		logging.Int("jobs", len(jobs)),
		logging.String("endpoint", d.client.Endpoint().Address()),
	)
	d.notifyStarted(ctx, logger, len(jobs))

	runErr := d.ensureService(ctx, logger)
	if runErr == nil {
		runErr = d.submitAll(ctx, logger, jobs, &report)
	}
	if runErr != nil {
		for i := len(report.Results); i < len(jobs); i++ {
			report.add(JobResult{Index: i + 1, Job: jobs[i], Outcome: OutcomeSkipped, Err: runErr})
		}
	}
	report.Finished = d.now()

	logger.Info("submission run finished",
		logging.Int("accepted", report.Counts.Accepted),
		logging.Int("busy_exhausted", report.Counts.BusyExhausted),
		logging.Int("rejected", report.Counts.Rejected),
		logging.Int("errored", report.Counts.Errored),
		logging.Int("skipped", report.Counts.Skipped),
		logging.Duration("duration", report.Duration()),
	)
	d.finish(ctx, logger, report, runErr)
	return report, runErr
}

func (d *Driver) ensureService(ctx context.Context, logger *slog.Logger) error {
	if d.starter == nil {
		return nil
	}
	result, err := d.starter.EnsureRunning(ctx)
	if err != nil {
		logging.ErrorWithContext(logger, "AME web service did not come up", "service_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
		return err
	}
	if result.State == encoderctl.StateUnavailable {
		// The endpoint may still be served by an AME instance started by hand.
		logging.WarnWithContext(logger, "AME launcher unavailable; submitting to configured endpoint anyway", "service_unavailable",
			logging.String(logging.FieldErrorHint, services.Hint(services.ErrServiceUnavailable)),
			logging.String(logging.FieldImpact, "jobs fail as transport errors if nothing is listening"),
		)
	}
	return nil
}

func (d *Driver) submitAll(ctx context.Context, logger *slog.Logger, jobs []manifest.JobDescriptor, report *Report) error {
	for i, job := range jobs {
		// AME rejects a job sent too soon after an accepted one.
		if i > 0 && d.cooldown > 0 && report.Results[i-1].Outcome.Succeeded() {
			if err := d.sleep(ctx, d.cooldown); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result := d.submitJob(services.WithJobIndex(ctx, i+1), logger, i+1, job)
		report.add(result)

		if errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if d.stopOnFatal && result.Final.Fatal() {
			logging.WarnWithContext(logger, "stopping run after fatal failure", "run_stopped",
				logging.String(logging.FieldOutcome, string(result.Outcome)),
				logging.Int("remaining", len(jobs)-i-1),
				logging.String(logging.FieldErrorHint, services.Hint(result.Err)),
				logging.String(logging.FieldImpact, "remaining jobs were not submitted"),
			)
			skipErr := fmt.Errorf("skipped after job #%d failed: %w", i+1, result.Err)
			for j := i + 1; j < len(jobs); j++ {
				report.add(JobResult{Index: j + 1, Job: jobs[j], Outcome: OutcomeSkipped, Err: skipErr})
			}
			return nil
		}
	}
	return nil
}

// submitJob runs the busy retry loop for one job. No delay follows the final
// busy reply.
func (d *Driver) submitJob(ctx context.Context, runLogger *slog.Logger, index int, job manifest.JobDescriptor) JobResult {
	logger := logging.WithContext(ctx, runLogger)
	endpoint := d.client.Endpoint()
	limit := max(endpoint.BusyRetryLimit, 1)
	started := d.now()

	var res ame.Result
	attempts := 0
	for attempts < limit {
		attempts++
		res = d.client.Submit(ctx, job)
		logger.Debug("submission attempt",
			logging.Int(logging.FieldAttempt, attempts),
			logging.String(logging.FieldOutcome, res.Kind.String()),
			logging.Int("status_code", res.StatusCode),
		)
		if !res.Retryable() || attempts >= limit {
			break
		}
		if err := d.sleep(ctx, endpoint.BusyRetryDelay); err != nil {
			return JobResult{Index: index, Job: job, Outcome: OutcomeSkipped, Attempts: attempts, Final: res,
				Err: err, Duration: d.now().Sub(started)}
		}
	}

	result := JobResult{
		Index:    index,
		Job:      job,
		Outcome:  outcomeFor(res.Kind),
		Attempts: attempts,
		Final:    res,
		Err:      res.AsError(),
		Duration: d.now().Sub(started),
	}
	if result.Outcome == OutcomeBusyExhausted {
		result.Err = services.Wrap(services.ErrServiceBusy, "submission", "submit",
			fmt.Sprintf("still busy after %d attempts", attempts), nil)
	}

	if result.Outcome.Succeeded() {
		attrs := []logging.Attr{
			logging.String("input", job.InputPath),
			logging.String("preset", job.PresetName),
			logging.Int("attempts", attempts),
		}
		if res.JobID != "" {
			attrs = append(attrs, logging.String("ame_job_id", res.JobID))
		}
		if res.Kind == ame.KindSocketResetLikelySuccess {
			attrs = append(attrs, logging.String(logging.FieldOutcome, res.Kind.String()))
		}
		logger.Info("job queued in AME", logging.Args(attrs...)...)
		return result
	}

	logging.WarnWithContext(logger, "job not queued", "job_failed",
		logging.String("input", job.InputPath),
		logging.String(logging.FieldOutcome, string(result.Outcome)),
		logging.Int("attempts", attempts),
		logging.Error(result.Err),
		logging.String(logging.FieldErrorHint, services.Hint(result.Err)),
		logging.String(logging.FieldImpact, "no proxy will be produced for this file"),
	)
	return result
}

func (d *Driver) notifyStarted(ctx context.Context, logger *slog.Logger, count int) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.NotifyRunStarted(ctx, count); err != nil {
		logger.Debug("run start notification failed", logging.Error(err))
	}
}

func (d *Driver) finish(ctx context.Context, logger *slog.Logger, report Report, runErr error) {
	// Hooks run after cancellation too; the report is still worth keeping.
	hookCtx := context.WithoutCancel(ctx)
	if d.recorder != nil {
		if err := d.recorder.RecordRun(hookCtx, report); err != nil {
			logging.WarnWithContext(logger, "failed to record run history", "history_record_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
				logging.String(logging.FieldImpact, "run missing from `proxyoda history`"),
			)
		}
	}
	if d.notifier == nil {
		return
	}
	if runErr != nil {
		if err := d.notifier.NotifyError(hookCtx, runErr, "submission run "+report.RunID); err != nil {
			logger.Debug("error notification failed", logging.Error(err))
		}
		return
	}
	if err := d.notifier.NotifyRunCompleted(hookCtx, report.Counts.Accepted, report.Counts.Failed(), report.Duration()); err != nil {
		logger.Debug("run completion notification failed", logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
