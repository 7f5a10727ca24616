package logging

import (
	"context"
	"log/slog"

	"ghoststation/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventID is the standardized structured logging key for event identifiers.
	FieldEventID = "event_id"
	// FieldSessionID is the standardized structured logging key for session identifiers.
	FieldSessionID = "session_id"
	// FieldStage names the pipeline step (capture, enrichment, correlation).
	FieldStage = "stage"
	// FieldModality is the standardized structured logging key for audio/video modality.
	FieldModality = "modality"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a warning or error for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.EventIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldEventID, id))
	}
	if id, ok := services.SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldSessionID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
