package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// CurrentVersion is the configuration schema version written by this build.
const CurrentVersion = 1

// Paths contains directory configuration.
type Paths struct {
	OriginalDir string `toml:"original_dir"`
	ProxyDir    string `toml:"proxy_dir"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
	ScriptDir   string `toml:"script_dir"`
}

// Encoder describes the local Adobe Media Encoder installation.
type Encoder struct {
	Version        string   `toml:"version"`
	AppProcess     string   `toml:"app_process"`
	ConsoleProcess string   `toml:"console_process"`
	AppPaths       []string `toml:"app_paths"`
	ConsolePaths   []string `toml:"console_paths"`
	ManageService  bool     `toml:"manage_service"`
	PresetDir      string   `toml:"preset_dir"`
}

// WebService contains the AME web service endpoint and submission policy.
type WebService struct {
	Host                  string `toml:"host"`
	Port                  int    `toml:"port"`
	BusyRetryLimit        int    `toml:"busy_retry_limit"`
	BusyRetryDelayMS      int    `toml:"busy_retry_delay_ms"`
	RequestTimeoutMS      int    `toml:"request_timeout_ms"`
	CooldownMS            int    `toml:"cooldown_ms"`
	StartupTimeoutColdMS  int    `toml:"startup_timeout_cold_ms"`
	StartupTimeoutWarmMS  int    `toml:"startup_timeout_warm_ms"`
	ProbeInitialBackoffMS int    `toml:"probe_initial_backoff_ms"`
	ProbeMaxBackoffMS     int    `toml:"probe_max_backoff_ms"`
	SocketResetPolicy     string `toml:"socket_reset_policy"`
	StopOnFatal           bool   `toml:"stop_on_fatal"`
}

// Scan controls original discovery and proxy naming.
type Scan struct {
	Extensions       []string `toml:"extensions"`
	ProxySuffix      string   `toml:"proxy_suffix"`
	ProxyExtension   string   `toml:"proxy_extension"`
	ProbeConcurrency int      `toml:"probe_concurrency"`
	FFprobeBinary    string   `toml:"ffprobe_binary"`
	MediaInfoBinary  string   `toml:"mediainfo_binary"`
}

// Resolution maps a source resolution label to a proxy scale and preset.
type Resolution struct {
	Resolution string `toml:"resolution"`
	Scale      string `toml:"scale"`
	Preset     string `toml:"preset"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Run            bool   `toml:"run"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for proxyoda.
//
// Configuration sections by subsystem:
//   - Paths: original/proxy roots plus log, state, and script directories
//   - Encoder: AME install locations, process names, preset version
//   - WebService: endpoint and submission retry policy
//   - Scan: discovery extensions, proxy naming, resolution probing
//   - Resolutions: per-resolution scale and preset assignments
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Version       int           `toml:"config_version"`
	Paths         Paths         `toml:"paths"`
	Encoder       Encoder       `toml:"encoder"`
	WebService    WebService    `toml:"webservice"`
	Scan          Scan          `toml:"scan"`
	Resolutions   []Resolution  `toml:"resolutions"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/proxyoda/config.toml")
}

// Load locates, parses, migrates, and validates a configuration file. The
// returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		migrated, err := migrate(data)
		if err != nil {
			return nil, "", false, err
		}
		if err := toml.Unmarshal(migrated, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("proxyoda.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories proxyoda writes into. The proxy
// directory is created on a best-effort basis since it may live on removable
// or network storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir, c.Paths.ScriptDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ProxyDir) != "" {
		_ = os.MkdirAll(c.Paths.ProxyDir, 0o755)
	}
	return nil
}

// Marshal renders the effective configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// ResolutionFor returns the mapping configured for a resolution label.
func (c *Config) ResolutionFor(label string) (Resolution, bool) {
	label = strings.TrimSpace(label)
	for _, r := range c.Resolutions {
		if strings.EqualFold(r.Resolution, label) {
			return r, true
		}
	}
	return Resolution{}, false
}

// BusyRetryDelay returns the delay between busy retries.
func (w WebService) BusyRetryDelay() time.Duration {
	return time.Duration(w.BusyRetryDelayMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (w WebService) RequestTimeout() time.Duration {
	return time.Duration(w.RequestTimeoutMS) * time.Millisecond
}

// Cooldown returns the delay inserted between consecutive jobs.
func (w WebService) Cooldown() time.Duration {
	return time.Duration(w.CooldownMS) * time.Millisecond
}

// StartupTimeout returns the readiness deadline for a cold or warm start.
func (w WebService) StartupTimeout(cold bool) time.Duration {
	if cold {
		return time.Duration(w.StartupTimeoutColdMS) * time.Millisecond
	}
	return time.Duration(w.StartupTimeoutWarmMS) * time.Millisecond
}

// ProbeBackoff returns the initial and maximum readiness probe backoff.
func (w WebService) ProbeBackoff() (time.Duration, time.Duration) {
	return time.Duration(w.ProbeInitialBackoffMS) * time.Millisecond,
		time.Duration(w.ProbeMaxBackoffMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
