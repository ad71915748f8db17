// Package otel binds kvauth engine metrics to OpenTelemetry instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter and
// an Int64ObservableGauge per latency bucket. A single callback reads
// [kvauth.Engine.MetricsSnapshot] on each collection. Callers own the
// MeterProvider.
package otel
