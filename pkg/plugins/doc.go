// Package plugins is the lsx plugin host. It discovers plugin libraries,
// loads them, keeps track of their health and enablement, and dispatches
// decoration, field formatting and action requests to them.
//
// # Lifecycle
//
// Every library found by Registry.Discover becomes a registry entry:
//
//	Discovered -> Loaded -> Healthy | Unhealthy -> Evicted
//
// A loaded library is probed for its name, version, description and
// supported views. The probe has a timeout and the version must satisfy
// the registry's CompatibilityPolicy. Entries that fail stay listed with
// the reason but are never dispatched to. Registry.Clean, Registry.Remove
// and the Watcher evict entries permanently.
//
// # Dispatch
//
//	reg := plugins.NewRegistry(plugins.Options{EnabledStore: cfg, Logger: log})
//	if _, err := reg.Discover(ctx, cfg.PluginsDir); err != nil {
//		log.Warn(err)
//	}
//	d := plugins.NewDispatcher(reg, plugins.DispatcherOptions{})
//	entry = d.Decorate(ctx, entry)
//	columns := d.FormatFields(ctx, entry, "table")
//
// Decoration and formatting are best effort. PerformAction is not: it
// calls one plugin once and returns the plugin's failure message
// unchanged.
//
// # Concurrency
//
// Calls into one binding are serialized. Different bindings may be
// called concurrently. Plugin calls cannot be cancelled; only the load
// time probe is bounded.
package plugins
