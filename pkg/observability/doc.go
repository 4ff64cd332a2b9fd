// Package observability provides logging, Prometheus metrics, tracing and
// panic capture for the lsx plugin host.
//
// # Logging
//
// Components take a *logrus.Logger:
//
//	logger := observability.NewLogger(observability.ParseLevel("debug"), observability.TextFormat, os.Stderr)
//	logger.WithField("plugin", "git").Warn("decorate failed")
//
// WithRunID adds a run_id field to every entry so the logs of one
// invocation can be grouped.
//
// # Metrics
//
// Metrics are registered on a caller-supplied registry. A nil *Metrics is a
// valid no-op, so libraries can record unconditionally:
//
//	reg := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(reg)
//	metrics.RecordCall("git", "format_field", observability.StatusOK, elapsed)
//
// Short-lived CLI runs can dump the registry with WriteTextfile for the
// node_exporter textfile collector.
//
// # Tracing
//
// Tracer returns the OpenTelemetry tracer used for plugin call spans. It is
// a no-op unless the process installs an SDK tracer provider.
//
// # Panics
//
// CapturePanic converts recovered panics into *PanicError values carrying
// the stack; RecoverPanic logs and swallows them in background goroutines.
package observability
