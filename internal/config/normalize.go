package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEncoder(); err != nil {
		return err
	}
	if err := c.normalizeWebService(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeResolutions()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OriginalDir, err = expandPath(strings.TrimSpace(c.Paths.OriginalDir)); err != nil {
		return fmt.Errorf("paths.original_dir: %w", err)
	}
	if c.Paths.ProxyDir, err = expandPath(strings.TrimSpace(c.Paths.ProxyDir)); err != nil {
		return fmt.Errorf("paths.proxy_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScriptDir) == "" {
		c.Paths.ScriptDir = defaultScriptDir
	}
	if c.Paths.ScriptDir, err = expandPath(c.Paths.ScriptDir); err != nil {
		return fmt.Errorf("paths.script_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() error {
	c.Encoder.Version = strings.TrimSpace(c.Encoder.Version)
	if c.Encoder.Version == "" {
		c.Encoder.Version = defaultEncoderVersion
	}
	c.Encoder.AppProcess = strings.TrimSpace(c.Encoder.AppProcess)
	if c.Encoder.AppProcess == "" {
		c.Encoder.AppProcess = defaultAppProcess
	}
	c.Encoder.ConsoleProcess = strings.TrimSpace(c.Encoder.ConsoleProcess)
	if c.Encoder.ConsoleProcess == "" {
		c.Encoder.ConsoleProcess = defaultConsoleProcess
	}
	c.Encoder.AppPaths = trimList(c.Encoder.AppPaths)
	if len(c.Encoder.AppPaths) == 0 {
		c.Encoder.AppPaths = append([]string(nil), defaultAppPaths...)
	}
	c.Encoder.ConsolePaths = trimList(c.Encoder.ConsolePaths)
	if len(c.Encoder.ConsolePaths) == 0 {
		c.Encoder.ConsolePaths = append([]string(nil), defaultConsolePaths...)
	}
	if strings.TrimSpace(c.Encoder.PresetDir) != "" {
		var err error
		if c.Encoder.PresetDir, err = expandPath(strings.TrimSpace(c.Encoder.PresetDir)); err != nil {
			return fmt.Errorf("encoder.preset_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeWebService() error {
	if value, ok := os.LookupEnv("PROXYODA_AME_HOST"); ok && strings.TrimSpace(value) != "" {
		c.WebService.Host = value
	}
	if value, ok := os.LookupEnv("PROXYODA_AME_PORT"); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("PROXYODA_AME_PORT: invalid port %q", value)
		}
		c.WebService.Port = port
	}
	c.WebService.Host = strings.TrimSpace(c.WebService.Host)
	if c.WebService.Host == "" {
		c.WebService.Host = defaultHost
	}
	if c.WebService.Port == 0 {
		c.WebService.Port = defaultPort
	}
	if c.WebService.BusyRetryDelayMS <= 0 {
		c.WebService.BusyRetryDelayMS = defaultBusyRetryDelayMS
	}
	if c.WebService.RequestTimeoutMS <= 0 {
		c.WebService.RequestTimeoutMS = defaultRequestTimeoutMS
	}
	if c.WebService.CooldownMS < 0 {
		c.WebService.CooldownMS = 0
	}
	if c.WebService.StartupTimeoutColdMS <= 0 {
		c.WebService.StartupTimeoutColdMS = defaultStartupTimeoutColdMS
	}
	if c.WebService.StartupTimeoutWarmMS <= 0 {
		c.WebService.StartupTimeoutWarmMS = defaultStartupTimeoutWarmMS
	}
	if c.WebService.ProbeInitialBackoffMS <= 0 {
		c.WebService.ProbeInitialBackoffMS = defaultProbeInitialBackoffMS
	}
	if c.WebService.ProbeMaxBackoffMS <= 0 {
		c.WebService.ProbeMaxBackoffMS = defaultProbeMaxBackoffMS
	}
	c.WebService.SocketResetPolicy = strings.ToLower(strings.TrimSpace(c.WebService.SocketResetPolicy))
	if c.WebService.SocketResetPolicy == "" {
		c.WebService.SocketResetPolicy = defaultSocketResetPolicy
	}
	return nil
}

func (c *Config) normalizeScan() {
	if len(c.Scan.Extensions) == 0 {
		c.Scan.Extensions = append([]string(nil), defaultExtensions...)
	} else {
		exts := make([]string, 0, len(c.Scan.Extensions))
		seen := make(map[string]struct{}, len(c.Scan.Extensions))
		for _, ext := range c.Scan.Extensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			if normalized == "" {
				continue
			}
			if !strings.HasPrefix(normalized, ".") {
				normalized = "." + normalized
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		if len(exts) == 0 {
			exts = append(exts, defaultExtensions...)
		}
		c.Scan.Extensions = exts
	}
	if strings.TrimSpace(c.Scan.ProxySuffix) == "" {
		c.Scan.ProxySuffix = defaultProxySuffix
	}
	c.Scan.ProxyExtension = strings.ToLower(strings.TrimSpace(c.Scan.ProxyExtension))
	if c.Scan.ProxyExtension == "" {
		c.Scan.ProxyExtension = defaultProxyExtension
	}
	if !strings.HasPrefix(c.Scan.ProxyExtension, ".") {
		c.Scan.ProxyExtension = "." + c.Scan.ProxyExtension
	}
	if c.Scan.ProbeConcurrency <= 0 {
		c.Scan.ProbeConcurrency = defaultProbeConcurrency
	}
	c.Scan.FFprobeBinary = strings.TrimSpace(c.Scan.FFprobeBinary)
	if c.Scan.FFprobeBinary == "" {
		c.Scan.FFprobeBinary = defaultFFprobeBinary
	}
	c.Scan.MediaInfoBinary = strings.TrimSpace(c.Scan.MediaInfoBinary)
	if c.Scan.MediaInfoBinary == "" {
		c.Scan.MediaInfoBinary = defaultMediaInfoBinary
	}
}

func (c *Config) normalizeResolutions() {
	for i := range c.Resolutions {
		r := &c.Resolutions[i]
		r.Resolution = strings.ToLower(strings.TrimSpace(r.Resolution))
		r.Scale = strings.ToLower(strings.TrimSpace(r.Scale))
		r.Preset = strings.TrimSpace(r.Preset)
		if r.Preset == "" {
			r.Preset = PresetUnassigned
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
