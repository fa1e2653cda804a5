/*
Package observability provides the metrics and tracing of the room-service
engine.

Metrics are fed by domain.LifecycleHooks and the catalog cache observer and
exposed for Prometheus. Tracing exports OpenTelemetry spans over OTLP/HTTP
when enabled.
*/
package observability
