package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"proxyoda/internal/config"
	"proxyoda/internal/encoderctl"
	"proxyoda/internal/fileutil"
	"proxyoda/internal/logging"
	"proxyoda/internal/manifest"
	"proxyoda/internal/services"
)

// MissingFoldersError lists destination folders that do not exist. Console
// mode cannot create parent folders on network shares reliably, so the
// folder tree must be mirrored first.
type MissingFoldersError struct {
	Folders []string
}

func (e *MissingFoldersError) Error() string {
	return fmt.Sprintf("%d destination folder(s) missing: %s", len(e.Folders), strings.Join(e.Folders, ", "))
}

// Unwrap tags the error as a filesystem failure.
func (e *MissingFoldersError) Unwrap() error {
	return services.ErrFilesystem
}

// Result describes a launched console-mode batch.
type Result struct {
	ScriptPath string
	AppPath    string
	JobCount   int
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithController replaces the OS process controller.
func WithController(controller encoderctl.ProcessController) Option {
	return func(s *Submitter) {
		if controller != nil {
			s.controller = controller
		}
	}
}

// WithLocator replaces executable discovery.
func WithLocator(locate func([]string) (string, bool)) Option {
	return func(s *Submitter) {
		if locate != nil {
			s.locate = locate
		}
	}
}

// WithLogger sets the submitter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = logging.NewComponentLogger(logger, "script")
	}
}

// WithClock replaces time.Now, which names the script file.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) {
		if now != nil {
			s.now = now
		}
	}
}

// Submitter writes an ExtendScript batch and launches AME to run it.
type Submitter struct {
	controller encoderctl.ProcessController
	locate     func([]string) (string, bool)
	appProcess string
	appPaths   []string
	scriptDir  string
	logger     *slog.Logger
	now        func() time.Time
}

// NewSubmitter constructs a console-mode submitter from configuration.
func NewSubmitter(cfg *config.Config, opts ...Option) *Submitter {
	s := &Submitter{
		controller: encoderctl.NewOSController(),
		locate:     encoderctl.LocateExecutable,
		appProcess: cfg.Encoder.AppProcess,
		appPaths:   append([]string(nil), cfg.Encoder.AppPaths...),
		scriptDir:  cfg.Paths.ScriptDir,
		logger:     logging.NewComponentLogger(nil, "script"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit hands jobs to AME through console mode. AME must be closed: a
// running instance ignores --console and the jobs would be lost.
func (s *Submitter) Submit(ctx context.Context, jobs []manifest.JobDescriptor) (Result, error) {
	logger := logging.WithContext(ctx, s.logger)
	if len(jobs) == 0 {
		return Result{}, errors.New("no jobs to submit")
	}

	running, err := s.controller.IsRunning(ctx, s.appProcess)
	if err != nil {
		return Result{}, services.Wrap(services.ErrServiceUnavailable, "script", "check AME", s.appProcess, err)
	}
	if running {
		return Result{}, services.Wrap(services.ErrAlreadyRunning, "script", "submit",
			"Adobe Media Encoder is open; console mode requires it closed", nil)
	}

	if missing := MissingFolders(jobs); len(missing) > 0 {
		return Result{}, &MissingFoldersError{Folders: missing}
	}

	appPath, ok := s.locate(s.appPaths)
	if !ok {
		return Result{}, services.Wrap(services.ErrServiceUnavailable, "script", "locate AME",
			"Adobe Media Encoder not found in configured app_paths", nil)
	}

	scriptPath, err := s.WriteScript(jobs)
	if err != nil {
		return Result{}, err
	}

	if err := s.controller.SpawnDetached(appPath, "--console", "es.processFile", scriptPath); err != nil {
		return Result{ScriptPath: scriptPath}, services.Wrap(services.ErrServiceUnavailable, "script", "launch AME", appPath, err)
	}

	logger.Info("launched AME console batch",
		logging.String("script", scriptPath),
		logging.String("app", appPath),
		logging.Int("jobs", len(jobs)),
	)
	return Result{ScriptPath: scriptPath, AppPath: appPath, JobCount: len(jobs)}, nil
}

// WriteScript renders jobs into process_jobs_<unix ms>.jsx in the script
// directory. ExtendScript reads non-ASCII paths correctly only with a BOM.
func (s *Submitter) WriteScript(jobs []manifest.JobDescriptor) (string, error) {
	if err := os.MkdirAll(s.scriptDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "script", "create script dir", s.scriptDir, err)
	}
	path := filepath.Join(s.scriptDir, fmt.Sprintf("process_jobs_%d.jsx", s.now().UnixMilli()))
	content := Generate(jobs)
	err := fileutil.WriteAtomicFunc(path, 0o644, func(w io.Writer) error {
		enc := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
		if _, err := io.WriteString(enc, content); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return "", services.Wrap(services.ErrFilesystem, "script", "write script", path, err)
	}
	return path, nil
}

// MissingFolders returns the distinct output directories that do not exist,
// in first-seen order.
func MissingFolders(jobs []manifest.JobDescriptor) []string {
	var missing []string
	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		dir := OutputDir(job.OutputPath)
		if dir == "" {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			continue
		}
		missing = append(missing, dir)
	}
	return missing
}
