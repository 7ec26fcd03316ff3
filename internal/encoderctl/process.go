package encoderctl

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ProcessController abstracts OS process management so the supervisor can be
// tested without touching real processes.
type ProcessController interface {
	IsRunning(ctx context.Context, name string) (bool, error)
	// Terminate force-kills every process with the given image name. It
	// reports false, with no error, when nothing was running.
	Terminate(ctx context.Context, name string) (bool, error)
	SpawnDetached(path string, args ...string) error
}

// Executor abstracts command execution for testability. A non-zero exit code
// is not an error; err is reserved for commands that could not run.
type Executor interface {
	Run(ctx context.Context, binary string, args ...string) (output string, exitCode int, err error)
}

// Spawner starts a process that outlives proxyoda.
type Spawner func(path string, args ...string) error

// ControllerOption configures an OSController.
type ControllerOption func(*OSController)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) ControllerOption {
	return func(c *OSController) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithSpawner replaces the detached process launcher.
func WithSpawner(spawn Spawner) ControllerOption {
	return func(c *OSController) {
		if spawn != nil {
			c.spawn = spawn
		}
	}
}

// WithGOOS selects the command dialect. Defaults to runtime.GOOS.
func WithGOOS(goos string) ControllerOption {
	return func(c *OSController) {
		if goos = strings.TrimSpace(goos); goos != "" {
			c.goos = goos
		}
	}
}

// OSController implements ProcessController with the platform's process tools.
type OSController struct {
	exec  Executor
	spawn Spawner
	goos  string
}

// NewOSController constructs a controller for the current platform.
func NewOSController(opts ...ControllerOption) *OSController {
	c := &OSController{
		exec:  commandExecutor{},
		spawn: spawnDetached,
		goos:  runtime.GOOS,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsRunning reports whether a process with the given image name is running.
func (c *OSController) IsRunning(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, errors.New("process name required")
	}
	if c.goos == "windows" {
		out, code, err := c.exec.Run(ctx, "tasklist", "/FI", "IMAGENAME eq "+name, "/NH")
		if err != nil {
			return false, fmt.Errorf("tasklist: %w", err)
		}
		if code != 0 {
			return false, fmt.Errorf("tasklist exited with code %d: %s", code, strings.TrimSpace(out))
		}
		return strings.Contains(strings.ToLower(out), strings.ToLower(name)), nil
	}
	_, code, err := c.exec.Run(ctx, "pgrep", "-f", processPattern(name))
	if err != nil {
		return false, fmt.Errorf("pgrep: %w", err)
	}
	switch code {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf("pgrep exited with code %d", code)
	}
}

// Terminate force-kills processes by image name.
func (c *OSController) Terminate(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, errors.New("process name required")
	}
	if c.goos == "windows" {
		out, code, err := c.exec.Run(ctx, "taskkill", "/F", "/IM", name)
		if err != nil {
			return false, fmt.Errorf("taskkill: %w", err)
		}
		switch code {
		case 0:
			return true, nil
		case 128:
			// 128: no process with that image name.
			return false, nil
		default:
			if strings.Contains(strings.ToLower(out), "not found") {
				return false, nil
			}
			return false, fmt.Errorf("taskkill exited with code %d: %s", code, strings.TrimSpace(out))
		}
	}
	_, code, err := c.exec.Run(ctx, "pkill", "-9", "-f", processPattern(name))
	if err != nil {
		return false, fmt.Errorf("pkill: %w", err)
	}
	switch code {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf("pkill exited with code %d", code)
	}
}

// SpawnDetached launches path without waiting for it and without tying its
// lifetime to proxyoda.
func (c *OSController) SpawnDetached(path string, args ...string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("executable path is empty")
	}
	return c.spawn(path, args...)
}

// processPattern strips the Windows image suffix so pgrep/pkill match the
// same process under Wine or macOS bundles.
func processPattern(name string) string {
	return strings.TrimSuffix(name, ".exe")
}

func spawnDetached(path string, args ...string) error {
	cmd := exec.Command(path, args...) //nolint:gosec
	cmd.SysProcAttr = detachedAttrs()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", path, err)
	}
	return cmd.Process.Release()
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}
		return string(out), -1, err
	}
	return string(out), 0, nil
}
