// Package notifications publishes submission run events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers can always hold a Service. Run and error events can be muted
// independently through the [notifications] config table.
package notifications
