package plugins

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/lsx/pkg/observability"
)

// DefaultProbeTimeout bounds the identity probe of a freshly loaded plugin.
const DefaultProbeTimeout = 5 * time.Second

// Options configures a Registry. Every field is optional.
type Options struct {
	Opener        Opener              // defaults to NativeOpener
	EnabledStore  EnabledStore        // nil keeps the enabled set in memory only
	Compatibility CompatibilityPolicy // defaults to DefaultPolicy()
	ProbeTimeout  time.Duration       // defaults to DefaultProbeTimeout
	Logger        *logrus.Logger
	Metrics       *observability.Metrics
	Tracer        trace.Tracer
}

// entry is one registry record. Fields are guarded by Registry.mu; the
// binding has its own call lock.
type entry struct {
	name       string
	path       string
	descriptor Descriptor
	binding    *Binding // nil when the library failed to load
	health     *HealthStatus
	state      State
	loadedAt   time.Time
}

func (e *entry) unhealthy() bool {
	return e.health != nil && !e.health.Healthy
}

func (e *entry) healthy() bool {
	return e.health != nil && e.health.Healthy
}

// provisional reports whether e never produced a descriptor. Its name is
// then only the logical file name and never holds a plugin name against
// a library that did report one.
func (e *entry) provisional() bool {
	return e.descriptor.Name == ""
}

// Registry owns discovered plugins and the enabled set. A single
// read-biased lock guards both; dispatch only takes the read side.
type Registry struct {
	opener       Opener
	store        EnabledStore
	compat       CompatibilityPolicy
	probeTimeout time.Duration
	log          *logrus.Logger
	metrics      *observability.Metrics
	tracer       trace.Tracer

	mu      sync.RWMutex
	dir     string
	entries []*entry // registration order
	byName  map[string]*entry
	byPath  map[string]*entry
	enabled map[string]bool
}

// NewRegistry creates an empty registry. The enabled set is read from
// opts.EnabledStore once, here.
func NewRegistry(opts Options) *Registry {
	if opts.Opener == nil {
		opts.Opener = NativeOpener{}
	}
	if opts.Compatibility == nil {
		opts.Compatibility = DefaultPolicy()
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.Tracer(nil)
	}

	r := &Registry{
		opener:       opts.Opener,
		store:        opts.EnabledStore,
		compat:       opts.Compatibility,
		probeTimeout: opts.ProbeTimeout,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		byName:       make(map[string]*entry),
		byPath:       make(map[string]*entry),
		enabled:      make(map[string]bool),
	}
	if r.store != nil {
		for _, name := range r.store.EnabledPlugins() {
			r.enabled[name] = true
		}
	}
	return r
}

// Enable adds name to the enabled set and persists it. Enabling an
// enabled plugin is a no-op. Unhealthy plugins cannot be enabled.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byName[name]
	if !ok {
		return notFound(name)
	}
	if e.unhealthy() {
		return fmt.Errorf("%w: %s: %s", ErrUnhealthy, name, e.health.Reason)
	}
	if r.enabled[name] {
		return nil
	}

	r.enabled[name] = true
	if err := r.persistLocked(); err != nil {
		delete(r.enabled, name)
		return err
	}
	r.log.WithField("plugin", name).Info("Enabled plugin")
	return nil
}

// Disable removes name from the enabled set and persists it. Disabling a
// disabled plugin is a no-op.
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		return notFound(name)
	}
	if !r.enabled[name] {
		return nil
	}

	delete(r.enabled, name)
	if err := r.persistLocked(); err != nil {
		r.enabled[name] = true
		return err
	}
	r.log.WithField("plugin", name).Info("Disabled plugin")
	return nil
}

func (r *Registry) persistLocked() error {
	if r.store == nil {
		return nil
	}
	names := make([]string, 0, len(r.enabled))
	for name := range r.enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	if err := r.store.SaveEnabledPlugins(names); err != nil {
		return fmt.Errorf("failed to save enabled plugins: %w", err)
	}
	return nil
}

// List returns every entry in registration order, unhealthy ones included.
func (r *Registry) List() []EntryInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]EntryInfo, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, r.infoLocked(e))
	}
	return infos
}

// Get returns one entry by plugin name.
func (r *Registry) Get(name string) (EntryInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	if !ok {
		return EntryInfo{}, notFound(name)
	}
	return r.infoLocked(e), nil
}

// Enabled returns the entries the dispatcher will call, in registration order.
func (r *Registry) Enabled() []EntryInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []EntryInfo
	for _, e := range r.entries {
		if r.dispatchableLocked(e) {
			infos = append(infos, r.infoLocked(e))
		}
	}
	return infos
}

// Names returns every registered plugin name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.name)
	}
	return names
}

// Dir returns the directory of the last Discover call.
func (r *Registry) Dir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir
}

// Remove evicts name, optionally deleting its library file.
func (r *Registry) Remove(ctx context.Context, name string, removeFile bool) error {
	r.mu.Lock()
	e, ok := r.byName[name]
	if !ok {
		r.mu.Unlock()
		return notFound(name)
	}
	changed := r.evictLocked(e)
	var persistErr error
	if changed {
		persistErr = r.persistLocked()
	}
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"plugin": name, "path": e.path}).Info("Removed plugin")
	r.updateHealthyGauge()

	if removeFile {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Join(persistErr, fmt.Errorf("failed to remove %s: %w", e.path, err))
		}
	}
	return persistErr
}

// Close retires every binding and empties the registry. The persisted
// enabled set is left untouched.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.binding != nil {
			e.binding.Close()
		}
		e.state = StateEvicted
	}
	r.entries = nil
	r.byName = make(map[string]*entry)
	r.byPath = make(map[string]*entry)
	r.metrics.SetHealthy(0)
	return nil
}

// evictLocked closes e's binding and drops it from the registry. It
// reports whether the enabled set changed.
func (r *Registry) evictLocked(e *entry) bool {
	if e.binding != nil {
		e.binding.Close()
	}
	r.transition(e, StateEvicted)

	r.entries = slices.DeleteFunc(r.entries, func(x *entry) bool { return x == e })
	if r.byName[e.name] == e {
		delete(r.byName, e.name)
	}
	if r.byPath[e.path] == e {
		delete(r.byPath, e.path)
	}
	r.metrics.RecordEviction()

	if r.enabled[e.name] {
		delete(r.enabled, e.name)
		return true
	}
	return false
}

// evictPath evicts the entry loaded from path, if any.
func (r *Registry) evictPath(path, reason string) (string, bool) {
	r.mu.Lock()
	e, ok := r.byPath[path]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	if r.evictLocked(e) {
		if err := r.persistLocked(); err != nil {
			r.log.WithError(err).Warn("Failed to persist enabled plugins after eviction")
		}
	}
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"plugin": e.name, "path": path}).Infof("Evicted plugin: %s", reason)
	r.updateHealthyGauge()
	return e.name, true
}

// insertLocked registers e. The first entry that reported a name keeps
// it; a provisional entry holding the name is re-listed under its path,
// and a provisional newcomer is listed under its own path.
func (r *Registry) insertLocked(e *entry) error {
	if other, ok := r.byName[e.name]; ok {
		switch {
		case e.provisional():
			e.name = e.path
		case other.provisional():
			r.renameLocked(other, other.path)
		default:
			return duplicateName(e.name, e.path, other.path)
		}
	}
	r.entries = append(r.entries, e)
	r.byName[e.name] = e
	r.byPath[e.path] = e
	return nil
}

// claimNameLocked moves a provisional, already registered e to the name
// its library now reports.
func (r *Registry) claimNameLocked(e *entry, name string) error {
	if name == e.name {
		return nil
	}
	if other, ok := r.byName[name]; ok && other != e {
		if !other.provisional() {
			return duplicateName(name, e.path, other.path)
		}
		r.renameLocked(other, other.path)
	}
	r.renameLocked(e, name)
	return nil
}

func (r *Registry) renameLocked(e *entry, name string) {
	if r.byName[e.name] == e {
		delete(r.byName, e.name)
	}
	r.log.WithFields(logrus.Fields{"path": e.path, "from": e.name}).Debugf("Listing plugin as %s", name)
	e.name = name
	r.byName[name] = e
}

func duplicateName(name, path, otherPath string) error {
	return &LoadError{
		Path: path,
		Err:  fmt.Errorf("%w: %q already loaded from %s", ErrDuplicateName, name, otherPath),
	}
}

func (r *Registry) knowsPath(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPath[path]
	return ok
}

// transition moves e to next, logging and refusing moves the lifecycle forbids.
func (r *Registry) transition(e *entry, next State) {
	state, err := e.state.transition(next)
	if err != nil {
		r.log.WithField("plugin", e.name).Warn(err)
		return
	}
	e.state = state
}

func (r *Registry) dispatchableLocked(e *entry) bool {
	return r.enabled[e.name] && e.healthy() && e.binding != nil
}

func (r *Registry) infoLocked(e *entry) EntryInfo {
	info := EntryInfo{
		Name:       e.name,
		Path:       e.path,
		Descriptor: e.descriptor.clone(),
		Enabled:    r.enabled[e.name] && !e.unhealthy(),
		State:      e.state,
		LoadedAt:   e.loadedAt,
	}
	if e.health != nil {
		h := *e.health
		info.Health = &h
	}
	return info
}

func (r *Registry) updateHealthyGauge() {
	if r.metrics == nil {
		return
	}
	r.mu.RLock()
	n := 0
	for _, e := range r.entries {
		if e.healthy() {
			n++
		}
	}
	r.mu.RUnlock()
	r.metrics.SetHealthy(n)
}

// activeBinding is what the dispatcher needs from one entry.
type activeBinding struct {
	name       string
	descriptor Descriptor
	binding    *Binding
}

// active returns the dispatchable bindings in registration order.
func (r *Registry) active() []activeBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []activeBinding
	for _, e := range r.entries {
		if r.dispatchableLocked(e) {
			out = append(out, activeBinding{name: e.name, descriptor: e.descriptor, binding: e.binding})
		}
	}
	return out
}

// resolve looks up one binding for a targeted call.
func (r *Registry) resolve(name string, requireEnabled bool) (activeBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	if !ok {
		return activeBinding{}, notFound(name)
	}
	if e.unhealthy() || e.binding == nil {
		reason := "not probed"
		if e.health != nil {
			reason = e.health.Reason
		}
		return activeBinding{}, fmt.Errorf("%w: %s: %s", ErrUnhealthy, name, reason)
	}
	if requireEnabled && !r.enabled[name] {
		return activeBinding{}, fmt.Errorf("%w: %s", ErrPluginDisabled, name)
	}
	return activeBinding{name: e.name, descriptor: e.descriptor, binding: e.binding}, nil
}
