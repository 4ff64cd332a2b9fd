package plugins

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/lsx/pkg/observability"
	"github.com/platinummonkey/lsx/pkg/pluginproto"
)

// Binding is one loaded library and its call gate. Calls through a binding
// are serialized; calls through different bindings may run concurrently.
type Binding struct {
	name string // logical file name until the probe reports the real one
	path string

	mu     sync.Mutex // held for the duration of every call
	gate   CallGate
	closed atomic.Bool

	log     *logrus.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

func newBinding(name, path string, gate CallGate, log *logrus.Logger, metrics *observability.Metrics, tracer trace.Tracer) *Binding {
	return &Binding{
		name:    name,
		path:    path,
		gate:    gate,
		log:     log,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Name returns the plugin name used in logs and metrics.
func (b *Binding) Name() string { return b.name }

// Path returns the library file the binding was loaded from.
func (b *Binding) Path() string { return b.path }

// Call passes raw bytes through the gate. A panic inside the plugin is
// recovered and returned as a *CallError carrying the stack. Calls after
// Close fail with ErrEvicted without touching the plugin.
func (b *Binding) Call(kind string, in []byte) (out []byte, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return nil, &CallError{Plugin: b.name, Kind: kind, Err: ErrEvicted}
	}

	defer func() {
		if perr := observability.CapturePanic(recover()); perr != nil {
			out = nil
			err = &CallError{Plugin: b.name, Kind: kind, Err: perr, Stack: perr.Stack}
		}
	}()
	return b.gate(in), nil
}

// Invoke encodes req, calls the plugin and decodes its answer. Every
// failure is a *CallError: protocol failures also match
// pluginproto.ErrProtocol, and plugin Error responses unwrap to a
// *PluginReportedError.
func (b *Binding) Invoke(ctx context.Context, req pluginproto.Request) (pluginproto.Response, error) {
	kind := pluginproto.Kind(req)
	_, span := b.tracer.Start(ctx, "plugin."+kind, trace.WithAttributes(
		attribute.String("plugin.name", b.name),
		attribute.String("plugin.path", b.path),
	))
	defer span.End()

	start := time.Now()
	resp, err := b.invoke(kind, req)
	status := callStatus(err)
	b.metrics.RecordCall(b.name, kind, status, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return nil, err
	}
	span.SetAttributes(attribute.String("plugin.response", pluginproto.ResponseKind(resp)))
	return resp, nil
}

func (b *Binding) invoke(kind string, req pluginproto.Request) (pluginproto.Response, error) {
	in, err := pluginproto.EncodeRequest(req)
	if err != nil {
		return nil, &CallError{Plugin: b.name, Kind: kind, Err: err}
	}

	out, err := b.Call(kind, in)
	if err != nil {
		return nil, err
	}

	resp, err := pluginproto.DecodeResponse(out)
	if err != nil {
		return nil, &CallError{Plugin: b.name, Kind: kind, Err: err}
	}
	if e, ok := resp.(pluginproto.Error); ok {
		return nil, &CallError{Plugin: b.name, Kind: kind, Err: &PluginReportedError{Message: e.Message}}
	}
	return resp, nil
}

// Close retires the binding. The Go runtime cannot unmap a plugin, so the
// code stays resident but is never called again through this binding.
// Close does not wait for an in-flight call; a call that is hung inside the
// plugin must not block eviction.
func (b *Binding) Close() {
	b.closed.Store(true)
}

// Closed reports whether Close has been called.
func (b *Binding) Closed() bool {
	return b.closed.Load()
}

// invokeAs invokes req and requires a response of type T.
func invokeAs[T pluginproto.Response](ctx context.Context, b *Binding, req pluginproto.Request) (T, error) {
	var zero T
	resp, err := b.Invoke(ctx, req)
	if err != nil {
		return zero, err
	}
	typed, ok := resp.(T)
	if !ok {
		return zero, &CallError{
			Plugin: b.name,
			Kind:   pluginproto.Kind(req),
			Err: &pluginproto.ProtocolError{
				Op:  "decode response",
				Err: fmt.Errorf("unexpected %s response", pluginproto.ResponseKind(resp)),
			},
		}
	}
	return typed, nil
}

func callStatus(err error) string {
	var perr *observability.PanicError
	switch {
	case err == nil:
		return observability.StatusOK
	case errors.Is(err, ErrEvicted):
		return observability.StatusEvicted
	case errors.As(err, &perr):
		return observability.StatusPanic
	case errors.Is(err, pluginproto.ErrProtocol):
		return observability.StatusProtocolError
	default:
		return observability.StatusError
	}
}
