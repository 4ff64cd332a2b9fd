package plugins

import (
	"context"
	"errors"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/lsx/pkg/pluginproto"
)

// DefaultParallelThreshold is the listing size from which DecorateAll
// spreads work across goroutines.
const DefaultParallelThreshold = 64

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	ParallelThreshold int         // defaults to DefaultParallelThreshold
	Workers           int         // defaults to GOMAXPROCS
	FieldCache        *FieldCache // nil disables caching
	Logger            *logrus.Logger
}

// Dispatcher routes decoration, formatting and action requests to the
// registry's bindings. Decoration and formatting are best effort: a
// failing plugin contributes nothing and the listing goes on. Actions are
// attempted once and their failures are returned as-is.
type Dispatcher struct {
	registry  *Registry
	threshold int
	workers   int
	cache     *FieldCache
	log       *logrus.Logger
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts DispatcherOptions) *Dispatcher {
	if opts.ParallelThreshold <= 0 {
		opts.ParallelThreshold = DefaultParallelThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = registry.log
	}
	return &Dispatcher{
		registry:  registry,
		threshold: opts.ParallelThreshold,
		workers:   opts.Workers,
		cache:     opts.FieldCache,
		log:       opts.Logger,
	}
}

// Decorate passes entry through every enabled plugin in registration
// order, merging the custom fields each returns. Path and metadata always
// come from the host.
func (d *Dispatcher) Decorate(ctx context.Context, entry pluginproto.DecoratedEntry) pluginproto.DecoratedEntry {
	return d.decorate(ctx, d.registry.active(), entry)
}

func (d *Dispatcher) decorate(ctx context.Context, active []activeBinding, entry pluginproto.DecoratedEntry) pluginproto.DecoratedEntry {
	out := entry.Clone()
	for _, ab := range active {
		resp, err := invokeAs[pluginproto.Decorated](ctx, ab.binding, pluginproto.Decorate{Entry: out})
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"plugin": ab.name,
				"path":   entry.Path,
			}).Debugf("Decoration skipped: %v", err)
			continue
		}
		for k, v := range resp.Entry.CustomFields {
			if out.CustomFields == nil {
				out.CustomFields = make(map[string]string, len(resp.Entry.CustomFields))
			}
			out.CustomFields[k] = v
		}
	}
	return out
}

// DecorateAll decorates every entry. The result has the same length and
// order as entries. Listings of at least the parallel threshold are
// decorated concurrently; each binding still sees one call at a time.
func (d *Dispatcher) DecorateAll(ctx context.Context, entries []pluginproto.DecoratedEntry) []pluginproto.DecoratedEntry {
	out := make([]pluginproto.DecoratedEntry, len(entries))
	active := d.registry.active()
	if len(active) == 0 {
		for i, e := range entries {
			out[i] = e.Clone()
		}
		return out
	}

	if len(entries) < d.threshold || d.workers <= 1 {
		for i, e := range entries {
			out[i] = d.decorate(ctx, active, e)
		}
		return out
	}

	var eg errgroup.Group
	eg.SetLimit(d.workers)
	for i, e := range entries {
		eg.Go(func() error {
			out[i] = d.decorate(ctx, active, e)
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

// FormatFields collects the text each enabled plugin supporting view
// contributes to entry, in registration order. Empty results are dropped.
func (d *Dispatcher) FormatFields(ctx context.Context, entry pluginproto.DecoratedEntry, view string) []string {
	var fields []string
	for _, ab := range d.registry.active() {
		if !ab.descriptor.SupportsView(view) {
			continue
		}
		if v, ok := d.formatField(ctx, ab, entry, view); ok && v != "" {
			fields = append(fields, v)
		}
	}
	return fields
}

func (d *Dispatcher) formatField(ctx context.Context, ab activeBinding, entry pluginproto.DecoratedEntry, view string) (string, bool) {
	var key fieldKey
	if d.cache != nil {
		key = newFieldKey(ab, entry, view)
		if cached, ok := d.cache.get(key); ok {
			return cached.value, cached.ok
		}
	}

	resp, err := invokeAs[pluginproto.FormattedField](ctx, ab.binding, pluginproto.FormatField{Entry: entry, View: view})
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"plugin": ab.name,
			"path":   entry.Path,
			"view":   view,
		}).Debugf("Field formatting skipped: %v", err)
		return "", false
	}

	result := cachedField{}
	if resp.Value != nil {
		result = cachedField{value: *resp.Value, ok: true}
	}
	if d.cache != nil {
		d.cache.add(key, result)
	}
	return result.value, result.ok
}

// PerformAction runs action on the named plugin exactly once and returns
// the plugin's informational message. A failure reported by the plugin is
// returned as an *ActionError whose text is the plugin's own message.
func (d *Dispatcher) PerformAction(ctx context.Context, name, action string, args []string) (string, error) {
	ab, err := d.registry.resolve(name, true)
	if err != nil {
		return "", err
	}

	logger := d.log.WithFields(logrus.Fields{"plugin": name, "action": action})
	resp, err := invokeAs[pluginproto.ActionResult](ctx, ab.binding, pluginproto.PerformAction{Action: action, Args: args})
	if err != nil {
		var reported *PluginReportedError
		if errors.As(err, &reported) {
			logger.Infof("Action failed: %s", reported.Message)
			return "", &ActionError{Plugin: name, Action: action, Message: reported.Message}
		}
		logger.WithError(err).Warn("Action call failed")
		return "", err
	}
	if !resp.OK {
		logger.Infof("Action failed: %s", resp.Message)
		return "", &ActionError{Plugin: name, Action: action, Message: resp.Message}
	}
	logger.Debug("Action succeeded")
	return resp.Message, nil
}

// AvailableActions returns the named plugin's action catalog. Disabled
// plugins may be queried so their help can be shown before enabling them.
func (d *Dispatcher) AvailableActions(ctx context.Context, name string) ([]pluginproto.ActionInfo, error) {
	ab, err := d.registry.resolve(name, false)
	if err != nil {
		return nil, err
	}
	resp, err := invokeAs[pluginproto.AvailableActions](ctx, ab.binding, pluginproto.GetAvailableActions{})
	if err != nil {
		return nil, err
	}
	return resp.Actions, nil
}
