package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"proxyoda/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The original, proxy, and preset directories are created; service
// management is disabled so nothing tries to launch AME.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OriginalDir = filepath.Join(base, "originals")
	cfgVal.Paths.ProxyDir = filepath.Join(base, "proxies")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ScriptDir = filepath.Join(base, "scripts")
	cfgVal.Encoder.PresetDir = filepath.Join(base, "presets")
	cfgVal.Encoder.ManageService = false
	cfgVal.WebService.CooldownMS = 1
	cfgVal.WebService.BusyRetryDelayMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, dir := range []string{cfgVal.Paths.OriginalDir, cfgVal.Paths.ProxyDir, cfgVal.Encoder.PresetDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEndpoint points the web service settings at host:port.
func WithEndpoint(host string, port int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.WebService.Host = host
		b.cfg.WebService.Port = port
	}
}

// WithResolutions replaces the resolution mapping table.
func WithResolutions(resolutions ...config.Resolution) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Resolutions = append([]config.Resolution(nil), resolutions...)
	}
}

// WithPresets writes empty .epr files with the given names into the preset directory.
func WithPresets(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			path := filepath.Join(b.cfg.Encoder.PresetDir, name+".epr")
			if err := os.WriteFile(path, []byte("<PremiereData/>"), 0o644); err != nil {
				b.t.Fatalf("write preset %s: %v", name, err)
			}
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the media probe binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"mediainfo", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OriginalDir)
}
