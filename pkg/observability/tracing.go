package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for plugin host spans.
const TracerName = "github.com/platinummonkey/lsx/pkg/plugins"

// Tracer returns the plugin host tracer from tp, or from the global
// provider when tp is nil. With no SDK installed the global provider is a
// no-op.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(TracerName)
}
