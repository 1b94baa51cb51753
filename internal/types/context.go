package types

import (
	"context"
)

// Context keys are unexported to prevent collisions with other packages.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	hostIDKey    contextKey = "host_id"
)

// WithRequestID stores the request ID in the context.
// For broker-driven work the request ID is derived from the message; for the
// callback API it is assigned by middleware.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithHostID stores the scheduling host's user ID in the context so that
// log lines emitted deep inside the pipeline can be correlated to a run.
func WithHostID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, hostIDKey, id)
}

// GetHostID retrieves the scheduling host's user ID from the context.
func GetHostID(ctx context.Context) string {
	id, _ := ctx.Value(hostIDKey).(string)
	return id
}
