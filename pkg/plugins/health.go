package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/lsx/pkg/observability"
	"github.com/platinummonkey/lsx/pkg/pluginproto"
)

// ErrProbeTimeout is returned when the identity probe does not finish in time.
var ErrProbeTimeout = errors.New("identity probe timed out")

type probeResult struct {
	desc Descriptor
	err  error
}

// probe runs the identity round-trip and applies the compatibility policy.
// The returned descriptor is filled in as far as the probe got, so a plugin
// rejected for its version is still listed under its own name.
//
// Plugin calls cannot be cancelled. When the timeout fires the probe
// goroutine is abandoned and keeps holding the binding's call lock until
// the plugin returns, if it ever does.
func (r *Registry) probe(ctx context.Context, b *Binding) (Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	done := make(chan probeResult, 1)
	go func() {
		defer observability.RecoverPanic(r.log, "identity probe "+b.Path())
		desc, err := probeIdentity(ctx, b)
		done <- probeResult{desc: desc, err: err}
	}()

	var res probeResult
	select {
	case res = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Descriptor{}, fmt.Errorf("%w after %s", ErrProbeTimeout, r.probeTimeout)
		}
		return Descriptor{}, ctx.Err()
	}
	if res.err != nil {
		return res.desc, res.err
	}

	if err := r.compat.Check(res.desc.Version); err != nil {
		return res.desc, err
	}
	return res.desc, nil
}

func probeIdentity(ctx context.Context, b *Binding) (Descriptor, error) {
	var desc Descriptor

	name, err := invokeAs[pluginproto.Name](ctx, b, pluginproto.GetName{})
	if err != nil {
		return desc, err
	}
	if name.Value == "" {
		return desc, fmt.Errorf("plugin reported an empty name")
	}
	desc.Name = name.Value

	version, err := invokeAs[pluginproto.Version](ctx, b, pluginproto.GetVersion{})
	if err != nil {
		return desc, err
	}
	desc.Version = version.Value

	description, err := invokeAs[pluginproto.Description](ctx, b, pluginproto.GetDescription{})
	if err != nil {
		return desc, err
	}
	desc.Description = description.Value

	formats, err := invokeAs[pluginproto.SupportedFormats](ctx, b, pluginproto.GetSupportedFormats{})
	if err != nil {
		return desc, err
	}
	desc.SupportedViews = formats.Views

	return desc, nil
}
