// Package metrics provides observability hooks for manifest checks and cache
// reconciliation.
//
// The package implements the Null Object pattern: components receive a
// Recorder through dependency injection and default to NoopRecorder, so no
// call site needs a nil check and metrics stay optional at runtime.
//
//	agent := registry.NewAgent(cfg, store, registry.WithRecorder(recorder))
//
// PrometheusRecorder is the real implementation; the admin server exposes its
// registry via promhttp on the configured metrics path.
package metrics
