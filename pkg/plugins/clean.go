package plugins

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// CleanOptions configures Registry.Clean.
type CleanOptions struct {
	// Dir is rescanned for candidates not yet registered. Empty means the
	// directory of the last Discover call.
	Dir string

	// RemoveFiles deletes the library file of every evicted or rejected
	// plugin, except libraries rejected only for a duplicate name.
	RemoveFiles bool
}

// Clean re-validates every plugin. Registered entries whose file is gone,
// whose library cannot be loaded, or that fail a fresh identity probe are
// evicted permanently. Library files in the directory that were never
// registered are loaded and probed too: passing ones are registered and
// failing ones are reported. One outcome is returned per entry or file.
func (r *Registry) Clean(ctx context.Context, opts CleanOptions) ([]CleanOutcome, error) {
	r.mu.RLock()
	dir := opts.Dir
	if dir == "" {
		dir = r.dir
	}
	snapshot := make([]*entry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.RUnlock()

	var outcomes []CleanOutcome
	handled := make(map[string]bool)
	enabledChanged := false

	for _, e := range snapshot {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		handled[e.path] = true

		verr := r.revalidate(ctx, e)

		r.mu.Lock()
		out := CleanOutcome{Name: e.name, Path: e.path}
		if verr != nil && r.byPath[e.path] == e && r.evictLocked(e) {
			enabledChanged = true
		}
		r.mu.Unlock()

		if verr != nil {
			out.Evicted = true
			out.Reason = verr.Error()
			if opts.RemoveFiles && !errors.Is(verr, ErrDuplicateName) {
				out.FileRemoved = r.removeFile(e.path)
			}
			r.log.WithFields(logrus.Fields{"plugin": out.Name, "path": e.path}).Infof("Evicted plugin: %s", out.Reason)
		}
		outcomes = append(outcomes, out)
	}

	if enabledChanged {
		r.mu.Lock()
		err := r.persistLocked()
		r.mu.Unlock()
		if err != nil {
			r.log.WithError(err).Warn("Failed to persist enabled plugins after clean")
		}
	}

	var scanErr error
	if dir != "" {
		candidates, err := scanCandidates(dir, r.log)
		if err != nil {
			scanErr = err
		}
		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return outcomes, err
			}
			if handled[c.path] || r.knowsPath(c.path) {
				continue
			}
			outcomes = append(outcomes, r.cleanCandidate(ctx, c, opts))
		}
	}

	r.updateHealthyGauge()
	return outcomes, scanErr
}

// revalidate re-checks one entry and returns why it must be evicted, or
// nil when it is healthy. Health is updated either way. An entry that
// never reported a name is admitted under the name it reports now; one
// that did must keep reporting it.
func (r *Registry) revalidate(ctx context.Context, e *entry) error {
	if _, err := os.Stat(e.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.New("library file is missing")
		}
		return err
	}

	r.mu.RLock()
	b := e.binding
	name := e.name
	provisional := e.provisional()
	r.mu.RUnlock()

	fresh := false
	if b == nil {
		gate, err := r.opener.Open(e.path)
		if err != nil {
			var lerr *LoadError
			if !errors.As(err, &lerr) {
				err = &LoadError{Path: e.path, Err: err}
			}
			r.setHealth(e, nil, nil, err)
			return err
		}
		b = newBinding(name, e.path, gate, r.log, r.metrics, r.tracer)
		fresh = true
	}

	desc, err := r.probe(ctx, b)
	if err == nil && !provisional && desc.Name != name {
		err = fmt.Errorf("plugin now reports name %q, registered as %q", desc.Name, name)
	}
	if err != nil {
		if fresh {
			b.Close()
		}
		r.setHealth(e, nil, nil, err)
		return err
	}

	if fresh {
		b.name = desc.Name
	} else {
		b = nil
	}
	if err := r.setHealth(e, &desc, b, nil); err != nil {
		if b != nil {
			b.Close()
		}
		return err
	}
	return nil
}

// setHealth records a probe result on e. A non-nil binding replaces a
// missing one. A provisional entry takes the probed name, which fails
// when another plugin already holds it.
func (r *Registry) setHealth(e *entry, desc *Descriptor, b *Binding, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if err == nil && desc != nil && e.provisional() {
		if err = r.claimNameLocked(e, desc.Name); err == nil {
			e.descriptor = desc.clone()
		}
	}
	if err != nil {
		r.transition(e, StateUnhealthy)
		e.health = unhealthy(err.Error(), now)
		return err
	}
	if b != nil {
		e.binding = b
		e.loadedAt = now
	}
	r.transition(e, StateHealthy)
	e.health = healthy(now)
	return nil
}

// cleanCandidate handles a library file Clean found that was not registered.
func (r *Registry) cleanCandidate(ctx context.Context, c candidate, opts CleanOptions) CleanOutcome {
	e, err := r.load(ctx, c)
	out := CleanOutcome{Name: e.name, Path: c.path}

	if err == nil {
		r.mu.Lock()
		err = r.insertLocked(e)
		r.mu.Unlock()
		if err == nil {
			r.log.WithFields(logrus.Fields{"plugin": e.name, "path": c.path}).Info("Registered plugin found during clean")
			return out
		}
	}

	if e.binding != nil {
		e.binding.Close()
	}
	out.Reason = err.Error()
	if opts.RemoveFiles && !errors.Is(err, ErrDuplicateName) {
		out.FileRemoved = r.removeFile(c.path)
	}
	r.log.Warnf("Rejected plugin %s: %v", c.path, err)
	return out
}

func (r *Registry) removeFile(path string) bool {
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.WithError(err).Warnf("Failed to remove plugin file %s", path)
		}
		return false
	}
	return true
}
