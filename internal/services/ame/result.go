package ame

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"proxyoda/internal/services"
)

// Kind tags the outcome of one submission attempt.
type Kind int

const (
	KindAccepted Kind = iota
	KindBusy
	KindOffline
	KindSocketResetLikelySuccess
	KindRejected
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindAccepted:
		return "accepted"
	case KindBusy:
		return "busy"
	case KindOffline:
		return "offline"
	case KindSocketResetLikelySuccess:
		return "socket_reset_likely_success"
	case KindRejected:
		return "rejected"
	case KindTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the classified outcome of one POST /job attempt. Results are
// per attempt and are not persisted.
type Result struct {
	Kind       Kind
	StatusCode int
	Body       string
	// JobID is the identifier AME assigned, when the reply carried one.
	JobID string
	// Err holds the transport error for KindTransportError and
	// KindSocketResetLikelySuccess.
	Err error
}

// Succeeded reports whether the job should be considered queued by AME.
func (r Result) Succeeded() bool {
	return r.Kind == KindAccepted || r.Kind == KindSocketResetLikelySuccess
}

// Retryable reports whether the caller may resubmit after a delay.
func (r Result) Retryable() bool {
	return r.Kind == KindBusy
}

// Fatal reports whether the failure indicates that later jobs in the same run
// will fail the same way.
func (r Result) Fatal() bool {
	return r.Kind == KindOffline || r.Kind == KindTransportError
}

// AsError converts a non-successful result into an error tagged with the
// matching services marker. Successful results return nil.
func (r Result) AsError() error {
	switch r.Kind {
	case KindAccepted, KindSocketResetLikelySuccess:
		return nil
	case KindBusy:
		return services.Wrap(services.ErrServiceBusy, "ame-client", "submit", "service busy", nil)
	case KindOffline:
		return services.Wrap(services.ErrServiceOffline, "ame-client", "submit", "AME web service reports server offline", nil)
	case KindTransportError:
		return services.Wrap(services.ErrTransport, "ame-client", "submit", "post /job", r.Err)
	default:
		return services.Wrap(services.ErrRejected, "ame-client", "submit",
			fmt.Sprintf("status %d %s: %s", r.StatusCode, http.StatusText(r.StatusCode), truncateBody(r.Body)), nil)
	}
}

// truncateBody shortens body to at most 200 bytes without splitting a rune.
func truncateBody(body string) string {
	const limit = 200
	if len(body) <= limit {
		return body
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "…"
}
