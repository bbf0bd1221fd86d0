// Package telemetry groups the observability packages of the decisioning
// client.
//
//   - logging: slog handlers built from configuration, with request and
//     visitor ids carried in the context
//   - metrics: Prometheus collectors for evaluations, events, rule refreshes
//     and the history store
//   - tracing: OpenTelemetry tracer with an OTLP gRPC exporter
//   - health: liveness and readiness probes for the decide server
package telemetry
