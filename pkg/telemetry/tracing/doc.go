// Package tracing provides OpenTelemetry tracing for the decisioning client.
//
// New builds a tracer provider with an OTLP gRPC exporter and a parent-based
// sampler. When tracing is disabled it returns a noop tracer, so callers
// always start spans unconditionally:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "decisioning.send_event")
//	defer span.End()
//
// Trace context is propagated to the edge network with W3C Trace Context
// headers through Inject.
package tracing
