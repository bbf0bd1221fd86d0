// Package logging builds the structured loggers used across the decisioning
// client.
//
// Loggers are plain *slog.Logger values with JSON or text output. The handler
// adds request_id, ecid, trace_id and span_id from the context, so callers
// use the *Context methods:
//
//	logger, err := logging.New(cfg.Telemetry.Logging, nil)
//	ctx = logging.WithRequestID(ctx, requestID)
//	logger.InfoContext(ctx, "decision made", "consequence_count", 2)
package logging
