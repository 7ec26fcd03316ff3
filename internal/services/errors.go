package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrServiceOffline     = errors.New("service offline")
	ErrServiceBusy        = errors.New("service busy")
	ErrTransport          = errors.New("transport error")
	ErrRejected           = errors.New("rejected by service")
	ErrFilesystem         = errors.New("filesystem error")
	ErrAlreadyRunning     = errors.New("application already running")
	ErrConfiguration      = errors.New("configuration error")
	ErrTimeout            = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns the remediation a user should take for errors that cannot be
// recovered automatically. Unknown errors return an empty string.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyRunning):
		return "close Adobe Media Encoder and retry"
	case errors.Is(err, ErrServiceOffline):
		return "start Adobe Media Encoder in web service mode (ame_webservice_console) and retry"
	case errors.Is(err, ErrServiceUnavailable):
		return "install Adobe Media Encoder or set encoder.console_paths to the ame_webservice_console location"
	case errors.Is(err, ErrTimeout):
		return "the AME web service did not come online; check that the port is free and raise webservice.startup_timeout_cold_ms"
	case errors.Is(err, ErrServiceBusy):
		return "AME stayed busy; retry once the current encode finishes or raise webservice.busy_retry_limit"
	case errors.Is(err, ErrTransport):
		return "check webservice.host and webservice.port and that no firewall blocks the connection"
	case errors.Is(err, ErrRejected):
		return "inspect the response body; verify the preset path and that the source file is readable by AME"
	case errors.Is(err, ErrFilesystem):
		return "check that the path exists and is writable"
	case errors.Is(err, ErrConfiguration):
		return "run `proxyoda config validate` and fix the reported field"
	default:
		return ""
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
