// Package prometheus renders kvauth engine metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps an [kvauth.Engine] and exposes an [http.Handler]
// suitable for mounting at /metrics. Counter names are kvauth_*_total; the
// only histogram is kvauth_authorize_latency_seconds and is emitted only when
// latency histograms are enabled. Nothing is registered globally.
package prometheus
