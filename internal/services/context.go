package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	jobIndexKey  contextKey = "job_index"
	requestIDKey contextKey = "request_id"
)

// WithRunID annotates context with the submission run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the submission run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJobIndex annotates context with the 1-based position of a job in its run.
func WithJobIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, jobIndexKey, index)
}

// JobIndexFromContext extracts the job index if present.
func JobIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(jobIndexKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
