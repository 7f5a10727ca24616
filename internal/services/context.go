package services

import "context"

type contextKey string

const (
	eventIDKey   contextKey = "event_id"
	sessionIDKey contextKey = "session_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithEventID annotates context with the anomaly event identifier.
func WithEventID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromContext extracts the anomaly event identifier if present.
func EventIDFromContext(ctx context.Context) (int64, bool) {
	return int64Value(ctx, eventIDKey)
}

// WithSessionID annotates context with the investigation session identifier.
func WithSessionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the session identifier if present.
func SessionIDFromContext(ctx context.Context) (int64, bool) {
	return int64Value(ctx, sessionIDKey)
}

// WithStage annotates context with the pipeline step name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
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

func int64Value(ctx context.Context, key contextKey) (int64, bool) {
	switch val := ctx.Value(key).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}
