package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"proxyoda/internal/config"
	"proxyoda/internal/deps"
	"proxyoda/internal/encoderctl"
	"proxyoda/internal/presets"
	"proxyoda/internal/services/ame"
)

// MinFreeBytes is the free space below which the proxy volume check fails.
const MinFreeBytes uint64 = 1 << 30

// StatusProber reads GET /server.
type StatusProber interface {
	Status(ctx context.Context) (ame.ServerStatus, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable,
// and writable when write is set.
func CheckDirectoryAccess(name, path string, write bool) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path, write); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	mode := "read ok"
	if write {
		mode = "read/write ok"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, mode)}
}

// CheckFreeSpace verifies that the volume holding path has at least min bytes free.
func CheckFreeSpace(name, path string, min uint64) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	free, err := freeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)
	if free < min {
		return Result{Name: name, Detail: fmt.Sprintf("%s (below %s)", detail, humanize.IBytes(min))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the media inspection binaries. Either one is
// enough, so both are optional individually.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "MediaInfo",
			Command:     cfg.Scan.MediaInfoBinary,
			Description: "Preferred for reading clip resolution",
			Optional:    true,
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Scan.FFprobeBinary,
			Description: "Fallback for reading clip resolution",
			Optional:    true,
		},
	})
}

// CheckMediaProbe passes when at least one media inspection binary is on PATH.
func CheckMediaProbe(cfg *config.Config) Result {
	const name = "Media probe"
	statuses := CheckSystemDeps(cfg)
	if !deps.AnyAvailable(statuses) {
		return Result{Name: name, Detail: "neither mediainfo nor ffprobe found; every clip will scan as Unknown"}
	}
	var found []string
	for _, s := range statuses {
		if s.Available {
			found = append(found, s.Command)
		}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(found, ", ")}
}

// CheckPresets verifies the preset directory holds at least one .epr file.
func CheckPresets(cfg *config.Config) Result {
	const name = "Presets"
	store, err := presets.NewStoreFromConfig(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	list, err := store.List()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(list) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("no %s files in %s", presets.Extension, store.Dir())}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d presets in %s", len(list), store.Dir())}
}

// CheckLauncher verifies that a web service console executable exists. It is
// optional since submission still proceeds against an already running service.
func CheckLauncher(cfg *config.Config) Result {
	const name = "AME web service launcher"
	path, ok := encoderctl.LocateExecutable(cfg.Encoder.ConsolePaths)
	if !ok {
		return Result{Name: name, Optional: true, Detail: "ame_webservice_console not found in configured console_paths"}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: path}
}

// CheckWebService probes GET /server once.
func CheckWebService(ctx context.Context, prober StatusProber) Result {
	const name = "AME web service"
	status, err := prober.Status(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "status probe timed out"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	if status.Online() {
		return Result{Name: name, Passed: true, Detail: "online"}
	}
	return Result{Name: name, Detail: string(status.State)}
}
