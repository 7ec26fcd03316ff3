package encoderctl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"proxyoda/internal/config"
	"proxyoda/internal/logging"
	"proxyoda/internal/services"
	"proxyoda/internal/services/ame"
)

// StatusProber is the readiness probe used while waiting for the service.
type StatusProber interface {
	Status(ctx context.Context) (ame.ServerStatus, error)
}

type StartState string

const (
	// StateReady means GET /server reported online.
	StateReady StartState = "ready"
	// StateUnavailable means no console launcher was found; nothing was started.
	StateUnavailable StartState = "unavailable"
	// StateNotReady means the readiness probe did not see the service online
	// before the deadline.
	StateNotReady StartState = "not_ready"
)

func readyState(err error) StartState {
	if err != nil {
		return StateNotReady
	}
	return StateReady
}

// StartResult captures service bring-up state.
type StartResult struct {
	State       StartState
	ConsolePath string
	AppRunning  bool
	Launched    bool
	Probes      int
	Elapsed     time.Duration
	Status      ame.ServerStatus
}

// Snapshot is the current process and service state, for status reporting.
type Snapshot struct {
	AppRunning     bool
	ConsoleRunning bool
	ConsolePath    string
	Status         ame.ServerStatus
	StatusErr      error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithController replaces the OS process controller.
func WithController(controller ProcessController) Option {
	return func(s *Supervisor) {
		if controller != nil {
			s.controller = controller
		}
	}
}

// WithLogger sets the supervisor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logging.NewComponentLogger(logger, "encoderctl")
	}
}

// WithClock replaces time.Now and the backoff sleep (primarily for tests).
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithLocator replaces executable discovery.
func WithLocator(locate func([]string) (string, bool)) Option {
	return func(s *Supervisor) {
		if locate != nil {
			s.locate = locate
		}
	}
}

// Supervisor ensures ame_webservice_console is running and answering.
type Supervisor struct {
	controller     ProcessController
	prober         StatusProber
	locate         func([]string) (string, bool)
	appProcess     string
	consoleProcess string
	consolePaths   []string
	manage         bool
	coldTimeout    time.Duration
	warmTimeout    time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
	now            func() time.Time
	sleep          func(context.Context, time.Duration) error
}

// NewSupervisor constructs a supervisor from the [encoder] and [webservice]
// sections.
func NewSupervisor(cfg *config.Config, prober StatusProber, opts ...Option) *Supervisor {
	initial, maxBackoff := cfg.WebService.ProbeBackoff()
	s := &Supervisor{
		controller:     NewOSController(),
		prober:         prober,
		locate:         LocateExecutable,
		appProcess:     cfg.Encoder.AppProcess,
		consoleProcess: cfg.Encoder.ConsoleProcess,
		consolePaths:   append([]string(nil), cfg.Encoder.ConsolePaths...),
		manage:         cfg.Encoder.ManageService,
		coldTimeout:    cfg.WebService.StartupTimeout(true),
		warmTimeout:    cfg.WebService.StartupTimeout(false),
		initialBackoff: initial,
		maxBackoff:     maxBackoff,
		logger:         logging.NewComponentLogger(nil, "encoderctl"),
		now:            time.Now,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureRunning restarts the web service console and waits until it reports
// online. The stale console is terminated first in every case. A missing
// launcher yields StateUnavailable with a nil error so callers can report the
// service as unavailable instead of failing hard.
// With service management disabled only the readiness probe runs.
func (s *Supervisor) EnsureRunning(ctx context.Context) (StartResult, error) {
	logger := logging.WithContext(ctx, s.logger)
	started := s.now()

	if !s.manage {
		status, probes, err := s.WaitReady(ctx, s.warmTimeout)
		result := StartResult{State: readyState(err), Probes: probes, Elapsed: s.now().Sub(started), Status: status}
		if err != nil {
			return result, err
		}
		logger.Info("AME web service online", logging.Int("probes", probes))
		return result, nil
	}

	// A stale console keeps the port bound, so it is always replaced.
	killed, err := s.controller.Terminate(ctx, s.consoleProcess)
	if err != nil {
		logging.WarnWithContext(logger, "terminate stale console failed", "console_terminate_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the new console may fail to bind its port"),
		)
	} else if killed {
		logger.Info("terminated stale web service console", logging.String("process", s.consoleProcess))
	}

	consolePath, ok := s.locate(s.consolePaths)
	if !ok {
		logging.WarnWithContext(logger, "AME web service console not found", "console_missing",
			logging.Int("candidates", len(s.consolePaths)),
			logging.String(logging.FieldErrorHint, services.Hint(services.ErrServiceUnavailable)),
			logging.String(logging.FieldImpact, "jobs cannot be submitted through the web service"),
		)
		return StartResult{State: StateUnavailable, Elapsed: s.now().Sub(started)}, nil
	}

	appRunning, err := s.controller.IsRunning(ctx, s.appProcess)
	if err != nil {
		logging.WarnWithContext(logger, "AME process check failed; assuming cold start", "app_check_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "startup deadline uses the cold start timeout"),
		)
		appRunning = false
	}

	if err := s.controller.SpawnDetached(consolePath); err != nil {
		return StartResult{State: StateUnavailable, ConsolePath: consolePath, AppRunning: appRunning, Elapsed: s.now().Sub(started)},
			services.Wrap(services.ErrServiceUnavailable, "encoderctl", "spawn console", consolePath, err)
	}

	deadline := s.warmTimeout
	if !appRunning {
		deadline = s.coldTimeout
	}
	logger.Info("launched AME web service console",
		logging.String("path", consolePath),
		logging.Bool("app_running", appRunning),
		logging.Duration("deadline", deadline),
	)

	status, probes, err := s.WaitReady(ctx, deadline)
	result := StartResult{
		State:       readyState(err),
		ConsolePath: consolePath,
		AppRunning:  appRunning,
		Launched:    true,
		Probes:      probes,
		Elapsed:     s.now().Sub(started),
		Status:      status,
	}
	if err != nil {
		return result, err
	}
	logger.Info("AME web service online",
		logging.Int("probes", probes),
		logging.Duration("duration", result.Elapsed),
	)
	return result, nil
}

// WaitReady polls GET /server with exponential backoff until it reports
// online or timeout elapses. It returns the last observed status and the
// number of probes issued.
func (s *Supervisor) WaitReady(ctx context.Context, timeout time.Duration) (ame.ServerStatus, int, error) {
	logger := logging.WithContext(ctx, s.logger)
	deadline := s.now().Add(timeout)
	backoff := s.initialBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	var (
		status  ame.ServerStatus
		lastErr error
		probes  int
	)
	for {
		probes++
		status, lastErr = s.prober.Status(ctx)
		if lastErr == nil && status.Online() {
			return status, probes, nil
		}
		logger.Debug("web service not ready",
			logging.String("server_state", string(status.State)),
			logging.Int("probes", probes),
			logging.Duration("backoff", backoff),
		)

		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			break
		}
		wait := min(backoff, remaining)
		if err := s.sleep(ctx, wait); err != nil {
			return status, probes, err
		}
		backoff *= 2
		if s.maxBackoff > 0 && backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}

	marker := services.ErrTimeout
	if status.State == ame.StateOffline {
		marker = services.ErrServiceOffline
	}
	return status, probes, services.Wrap(marker, "encoderctl", "wait ready",
		fmt.Sprintf("web service not online after %s (last state %s)", timeout, status.State), lastErr)
}

// Snapshot reports process and service state without changing anything.
func (s *Supervisor) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{}
	snap.AppRunning, _ = s.controller.IsRunning(ctx, s.appProcess)
	snap.ConsoleRunning, _ = s.controller.IsRunning(ctx, s.consoleProcess)
	snap.ConsolePath, _ = s.locate(s.consolePaths)
	snap.Status, snap.StatusErr = s.prober.Status(ctx)
	return snap
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
