package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// ECIDKey is the context key for the visitor ECID.
	ECIDKey contextKey = "ecid"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithECID adds the visitor ECID to the context.
func WithECID(ctx context.Context, ecid string) context.Context {
	return context.WithValue(ctx, ECIDKey, ecid)
}

// GetECID retrieves the visitor ECID from the context.
func GetECID(ctx context.Context) string {
	if ecid, ok := ctx.Value(ECIDKey).(string); ok {
		return ecid
	}
	return ""
}

// extractContextFields extracts common fields from context for logging,
// including the trace and span ids of an active span.
func extractContextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, slog.String("request_id", requestID))
	}
	if ecid := GetECID(ctx); ecid != "" {
		fields = append(fields, slog.String("ecid", ecid))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return fields
}

// ContextHandler is a slog.Handler that adds context fields to every record
// logged through the *Context logging methods.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps h.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle adds the context fields and delegates to the wrapped handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if fields := extractContextFields(ctx); len(fields) > 0 {
		r = r.Clone()
		r.AddAttrs(fields...)
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a ContextHandler whose wrapped handler has the attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup returns a ContextHandler whose wrapped handler has the group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
