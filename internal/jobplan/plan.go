package jobplan

import (
	"path/filepath"
	"strconv"

	"proxyoda/internal/config"
	"proxyoda/internal/manifest"
	"proxyoda/internal/scan"
)

// Reason explains why an original produced no job.
type Reason string

const (
	ReasonProxyExists       Reason = "proxy_exists"
	ReasonUnknownResolution Reason = "unknown_resolution"
	ReasonUnmapped          Reason = "unmapped_resolution"
	ReasonScaleSkip         Reason = "scale_skip"
	ReasonPresetUnassigned  Reason = "preset_unassigned"
	ReasonPresetMissing     Reason = "preset_missing"
	ReasonInvalid           Reason = "invalid_job"
)

// PresetResolver maps a preset name to its .epr path.
type PresetResolver interface {
	Resolve(name string) (string, error)
}

// Options shape the plan.
type Options struct {
	ProxyDir       string
	ProxySuffix    string
	ProxyExtension string
	// MatchExtensions are the proxy extensions that count as an existing proxy.
	MatchExtensions []string
	Resolutions     []config.Resolution
	// Force plans jobs even when a proxy already exists.
	Force bool
}

// OptionsFromConfig derives plan options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ProxyDir:        cfg.Paths.ProxyDir,
		ProxySuffix:     cfg.Scan.ProxySuffix,
		ProxyExtension:  cfg.Scan.ProxyExtension,
		MatchExtensions: cfg.Scan.Extensions,
		Resolutions:     cfg.Resolutions,
	}
}

// Planned is a job together with the original and mapping it came from.
type Planned struct {
	File    scan.File
	Mapping config.Resolution
	Job     manifest.JobDescriptor
}

// TargetResolution returns the proxy frame size implied by the mapping's
// scale, or the scale keyword when the preset decides the size.
func (p Planned) TargetResolution() string {
	scale, err := strconv.ParseFloat(p.Mapping.Scale, 64)
	if err != nil || p.File.Width <= 0 || p.File.Height <= 0 {
		return p.Mapping.Scale
	}
	return scan.ResolutionLabel(scan.ScaledResolution(p.File.Width, p.File.Height, scale))
}

// Skip records an original that produced no job.
type Skip struct {
	File   scan.File
	Reason Reason
	Detail string
}

// Plan is the outcome of Build, in scan order.
type Plan struct {
	Planned []Planned
	Skipped []Skip
}

// Jobs returns the planned job descriptors in order.
func (p Plan) Jobs() []manifest.JobDescriptor {
	jobs := make([]manifest.JobDescriptor, 0, len(p.Planned))
	for _, planned := range p.Planned {
		jobs = append(jobs, planned.Job)
	}
	return jobs
}

// Build plans one job per original that lacks a proxy and has a mapped,
// non-skipped resolution with a resolvable preset.
func Build(files []scan.File, presets PresetResolver, opts Options) Plan {
	mappings := make(map[string]config.Resolution, len(opts.Resolutions))
	for _, r := range opts.Resolutions {
		mappings[r.Resolution] = r
	}
	matchExts := opts.MatchExtensions
	if len(matchExts) == 0 {
		matchExts = []string{opts.ProxyExtension}
	}

	var plan Plan
	skip := func(f scan.File, reason Reason, detail string) {
		plan.Skipped = append(plan.Skipped, Skip{File: f, Reason: reason, Detail: detail})
	}
	for _, f := range files {
		if f.Resolution == "" || f.Resolution == scan.UnknownResolution {
			detail := ""
			if f.ProbeErr != nil {
				detail = f.ProbeErr.Error()
			}
			skip(f, ReasonUnknownResolution, detail)
			continue
		}
		mapping, ok := mappings[f.Resolution]
		if !ok {
			skip(f, ReasonUnmapped, f.Resolution)
			continue
		}
		if mapping.Scale == config.ScaleSkip {
			skip(f, ReasonScaleSkip, f.Resolution)
			continue
		}
		if !opts.Force {
			if existing, found := scan.FindProxy(f, opts.ProxyDir, matchExts); found {
				skip(f, ReasonProxyExists, existing)
				continue
			}
		}
		if mapping.Preset == "" || mapping.Preset == config.PresetUnassigned {
			skip(f, ReasonPresetUnassigned, f.Resolution)
			continue
		}
		presetPath, err := presets.Resolve(mapping.Preset)
		if err != nil {
			skip(f, ReasonPresetMissing, err.Error())
			continue
		}
		job, err := manifest.NewJob(f.Path, OutputPath(f, opts), presetPath)
		if err != nil {
			skip(f, ReasonInvalid, err.Error())
			continue
		}
		plan.Planned = append(plan.Planned, Planned{File: f, Mapping: mapping, Job: job})
	}
	return plan
}

// OutputPath returns <proxy_dir>/<relative dir>/<base><suffix><extension>.
func OutputPath(f scan.File, opts Options) string {
	return filepath.Join(opts.ProxyDir, f.RelDir(), f.BaseName()+opts.ProxySuffix+opts.ProxyExtension)
}
