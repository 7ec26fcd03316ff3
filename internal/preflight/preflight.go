package preflight

import (
	"context"

	"proxyoda/internal/config"
)

// Result reports the outcome of a single preflight check. Optional checks
// are reported but never fail a run.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// RunAll executes every applicable check for the given config. The web
// service check uses prober; a nil prober skips it.
func RunAll(ctx context.Context, cfg *config.Config, prober StatusProber) []Result {
	if cfg == nil {
		return nil
	}

	results := Directories(cfg)
	results = append(results, CheckFreeSpace("Proxy free space", cfg.Paths.ProxyDir, MinFreeBytes))
	results = append(results, CheckMediaProbe(cfg))
	results = append(results, CheckPresets(cfg))

	if cfg.Encoder.ManageService {
		results = append(results, CheckLauncher(cfg))
	}
	if prober != nil {
		results = append(results, CheckWebService(ctx, prober))
	}
	return results
}

// Directories checks the original and proxy roots.
func Directories(cfg *config.Config) []Result {
	return []Result{
		CheckDirectoryAccess("Original directory", cfg.Paths.OriginalDir, false),
		CheckDirectoryAccess("Proxy directory", cfg.Paths.ProxyDir, true),
	}
}
