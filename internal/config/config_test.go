package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"proxyoda/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "proxyoda", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.WebService.Port != 8087 {
		t.Fatalf("unexpected default port: %d", cfg.WebService.Port)
	}
	if cfg.WebService.BusyRetryLimit != 30 {
		t.Fatalf("unexpected busy retry limit: %d", cfg.WebService.BusyRetryLimit)
	}
	if cfg.WebService.SocketResetPolicy != config.SocketResetSuccess {
		t.Fatalf("unexpected socket reset policy: %q", cfg.WebService.SocketResetPolicy)
	}
	if !cfg.Encoder.ManageService {
		t.Fatal("expected service management enabled by default")
	}
	if len(cfg.Encoder.ConsolePaths) == 0 {
		t.Fatal("expected default console paths")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir, cfg.Paths.ScriptDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "proxyoda.toml")

	type payload struct {
		Version    int `toml:"config_version"`
		WebService struct {
			Host           string `toml:"host"`
			Port           int    `toml:"port"`
			BusyRetryLimit int    `toml:"busy_retry_limit"`
		} `toml:"webservice"`
		Scan struct {
			Extensions []string `toml:"extensions"`
		} `toml:"scan"`
	}
	custom := payload{Version: 1}
	custom.WebService.Host = "10.0.0.5"
	custom.WebService.Port = 12345
	custom.WebService.BusyRetryLimit = 5
	custom.Scan.Extensions = []string{"MOV", ".mov", " mxf "}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.WebService.Host != "10.0.0.5" || cfg.WebService.Port != 12345 {
		t.Fatalf("unexpected endpoint: %s:%d", cfg.WebService.Host, cfg.WebService.Port)
	}
	if cfg.WebService.BusyRetryLimit != 5 {
		t.Fatalf("unexpected busy retry limit: %d", cfg.WebService.BusyRetryLimit)
	}
	if cfg.WebService.RequestTimeoutMS != 5000 {
		t.Fatalf("expected default request timeout, got %d", cfg.WebService.RequestTimeoutMS)
	}
	want := []string{".mov", ".mxf"}
	if strings.Join(cfg.Scan.Extensions, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected extensions: %v", cfg.Scan.Extensions)
	}
}

func TestLoadEnvOverridesEndpoint(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("PROXYODA_AME_HOST", "192.168.1.20")
	t.Setenv("PROXYODA_AME_PORT", "9000")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WebService.Host != "192.168.1.20" || cfg.WebService.Port != 9000 {
		t.Fatalf("unexpected endpoint: %s:%d", cfg.WebService.Host, cfg.WebService.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "port out of range",
			mutate: func(c *config.Config) { c.WebService.Port = 70000 },
			want:   "webservice.port",
		},
		{
			name:   "busy retry limit",
			mutate: func(c *config.Config) { c.WebService.BusyRetryLimit = 0 },
			want:   "busy_retry_limit",
		},
		{
			name:   "socket reset policy",
			mutate: func(c *config.Config) { c.WebService.SocketResetPolicy = "maybe" },
			want:   "socket_reset_policy",
		},
		{
			name: "scale",
			mutate: func(c *config.Config) {
				c.Resolutions = []config.Resolution{{Resolution: "1920x1080", Scale: "2", Preset: "p"}}
			},
			want: "scale",
		},
		{
			name: "duplicate resolution",
			mutate: func(c *config.Config) {
				c.Resolutions = []config.Resolution{
					{Resolution: "1920x1080", Scale: "0.5"},
					{Resolution: "1920x1080", Scale: "skip"},
				}
			},
			want: "duplicate",
		},
		{
			name:   "backoff ordering",
			mutate: func(c *config.Config) { c.WebService.ProbeMaxBackoffMS = 10 },
			want:   "probe_max_backoff_ms",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if len(cfg.Resolutions) != 2 {
		t.Fatalf("expected sample resolutions, got %d", len(cfg.Resolutions))
	}
	mapping, ok := cfg.ResolutionFor("1920x1080")
	if !ok || mapping.Preset != "proxy_hd" || mapping.Scale != "0.5" {
		t.Fatalf("unexpected mapping: %+v ok=%v", mapping, ok)
	}
}
