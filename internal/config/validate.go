package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("config_version %d is not supported (expected %d)", c.Version, CurrentVersion)
	}
	if err := c.validateWebService(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateResolutions(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWebService() error {
	ws := c.WebService
	if ws.Port <= 0 || ws.Port > 65535 {
		return fmt.Errorf("webservice.port must be between 1 and 65535, got %d", ws.Port)
	}
	if ws.BusyRetryLimit <= 0 {
		return errors.New("webservice.busy_retry_limit must be positive")
	}
	if err := ensurePositiveMap(map[string]int{
		"webservice.busy_retry_delay_ms":      ws.BusyRetryDelayMS,
		"webservice.request_timeout_ms":       ws.RequestTimeoutMS,
		"webservice.startup_timeout_cold_ms":  ws.StartupTimeoutColdMS,
		"webservice.startup_timeout_warm_ms":  ws.StartupTimeoutWarmMS,
		"webservice.probe_initial_backoff_ms": ws.ProbeInitialBackoffMS,
		"webservice.probe_max_backoff_ms":     ws.ProbeMaxBackoffMS,
	}); err != nil {
		return err
	}
	if ws.ProbeMaxBackoffMS < ws.ProbeInitialBackoffMS {
		return errors.New("webservice.probe_max_backoff_ms must be >= webservice.probe_initial_backoff_ms")
	}
	switch ws.SocketResetPolicy {
	case SocketResetSuccess, SocketResetFailure:
	default:
		return fmt.Errorf("webservice.socket_reset_policy must be %q or %q, got %q", SocketResetSuccess, SocketResetFailure, ws.SocketResetPolicy)
	}
	return nil
}

func (c *Config) validateScan() error {
	if strings.ContainsAny(c.Scan.ProxySuffix, `/\`) {
		return errors.New("scan.proxy_suffix must not contain path separators")
	}
	return nil
}

func (c *Config) validateResolutions() error {
	seen := make(map[string]struct{}, len(c.Resolutions))
	for i, r := range c.Resolutions {
		if r.Resolution == "" {
			return fmt.Errorf("resolutions[%d].resolution must be set", i)
		}
		if _, dup := seen[r.Resolution]; dup {
			return fmt.Errorf("resolutions[%d]: duplicate resolution %q", i, r.Resolution)
		}
		seen[r.Resolution] = struct{}{}
		switch r.Scale {
		case ScaleSkip, ScaleCustom:
			continue
		}
		scale, err := strconv.ParseFloat(r.Scale, 64)
		if err != nil || scale <= 0 || scale > 1 {
			return fmt.Errorf("resolutions[%d].scale must be %q, %q, or a number in (0, 1], got %q", i, ScaleSkip, ScaleCustom, r.Scale)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
