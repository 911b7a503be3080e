package logger

import "context"

type contextKey string

const TraceIDKey contextKey = "trace_id"
const SessionIDKey contextKey = "session_id"
const ConfirmationIDKey contextKey = "confirmation_id"

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

func WithConfirmationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ConfirmationIDKey, id)
}

func GetConfirmationID(ctx context.Context) string {
	if id, ok := ctx.Value(ConfirmationIDKey).(string); ok {
		return id
	}
	return ""
}

// Attrs returns the slog key/value pairs carried by ctx.
func Attrs(ctx context.Context) []any {
	var attrs []any
	if id := GetTraceID(ctx); id != "" {
		attrs = append(attrs, "trace_id", id)
	}
	if id := GetSessionID(ctx); id != "" {
		attrs = append(attrs, "session", id)
	}
	if id := GetConfirmationID(ctx); id != "" {
		attrs = append(attrs, "confirmation_id", id)
	}
	return attrs
}
