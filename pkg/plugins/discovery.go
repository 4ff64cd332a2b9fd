package plugins

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// candidate is a library file found by a directory scan.
type candidate struct {
	name string // logical name
	path string
}

// scanCandidates lists the library files directly inside dir in name
// order, keeping the first file for each logical name. A missing
// directory has no candidates.
func scanCandidates(dir string, log *logrus.Logger) ([]candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("Plugin directory does not exist: %s", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
	}

	seen := make(map[string]string)
	var candidates []candidate
	for _, de := range entries {
		if de.IsDir() || !IsLibraryFile(de.Name()) {
			continue
		}

		path := filepath.Join(dir, de.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		name := LogicalName(de.Name())
		if prev, ok := seen[name]; ok {
			log.Debugf("Skipping %s: plugin %s already provided by %s", path, name, prev)
			continue
		}
		seen[name] = path
		candidates = append(candidates, candidate{name: name, path: path})
	}
	return candidates, nil
}

// Discover scans dir for plugin libraries, loads and probes every file not
// already known, and registers the results. Candidates that fail to load
// or fail the probe are registered as unhealthy so they stay visible.
// Discovery continues past every per-candidate failure.
func (r *Registry) Discover(ctx context.Context, dir string) ([]LoadOutcome, error) {
	r.mu.Lock()
	r.dir = dir
	r.mu.Unlock()

	candidates, err := scanCandidates(dir, r.log)
	if err != nil {
		return nil, err
	}

	var outcomes []LoadOutcome
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		if r.knowsPath(c.path) {
			continue
		}
		outcomes = append(outcomes, r.admit(ctx, c))
	}

	r.updateHealthyGauge()
	return outcomes, nil
}

// admit loads c and inserts the result into the registry.
func (r *Registry) admit(ctx context.Context, c candidate) LoadOutcome {
	e, loadErr := r.load(ctx, c)

	r.mu.Lock()
	insertErr := r.insertLocked(e)
	r.mu.Unlock()

	if insertErr != nil {
		if e.binding != nil {
			e.binding.Close()
		}
		r.metrics.RecordLoad("duplicate")
		r.log.Warnf("Failed to load plugin from %s: %v", c.path, insertErr)
		return LoadOutcome{Name: e.name, Path: e.path, State: StateEvicted, Err: insertErr}
	}

	var lerr *LoadError
	switch {
	case loadErr == nil:
		r.metrics.RecordLoad("ok")
		r.log.WithFields(logrus.Fields{
			"plugin":  e.name,
			"version": e.descriptor.Version,
			"path":    e.path,
		}).Info("Loaded plugin")
	case errors.As(loadErr, &lerr):
		r.metrics.RecordLoad("load_failed")
		r.log.Warnf("Failed to load plugin from %s: %v", c.path, loadErr)
	default:
		r.metrics.RecordLoad("unhealthy")
		r.log.Warnf("Plugin %s from %s is unhealthy: %v", e.name, c.path, loadErr)
	}
	return LoadOutcome{Name: e.name, Path: e.path, State: e.state, Err: loadErr}
}

// load opens and probes one candidate. The returned entry is never nil;
// on failure it is unhealthy and carries the reason.
func (r *Registry) load(ctx context.Context, c candidate) (*entry, error) {
	e := &entry{name: c.name, path: c.path, state: StateDiscovered}

	gate, err := r.opener.Open(c.path)
	if err != nil {
		var lerr *LoadError
		if !errors.As(err, &lerr) {
			err = &LoadError{Path: c.path, Err: err}
		}
		r.transition(e, StateUnhealthy)
		e.health = unhealthy(err.Error(), time.Now())
		return e, err
	}

	e.binding = newBinding(c.name, c.path, gate, r.log, r.metrics, r.tracer)
	e.loadedAt = time.Now()
	r.transition(e, StateLoaded)

	desc, err := r.probe(ctx, e.binding)
	if desc.Name != "" {
		e.name = desc.Name
		e.binding.name = desc.Name
	}
	e.descriptor = desc.clone()
	if err != nil {
		r.transition(e, StateUnhealthy)
		e.health = unhealthy(err.Error(), time.Now())
		return e, err
	}
	r.transition(e, StateHealthy)
	e.health = healthy(time.Now())
	return e, nil
}
