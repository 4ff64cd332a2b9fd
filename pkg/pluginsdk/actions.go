package pluginsdk

import (
	"fmt"
	"sync"

	"github.com/platinummonkey/lsx/pkg/pluginproto"
)

// ActionFunc runs one action with the user's arguments.
type ActionFunc func(args []string) error

// ActionRegistry holds a plugin's named actions in registration order.
type ActionRegistry struct {
	mu      sync.RWMutex
	order   []string
	actions map[string]registeredAction
}

type registeredAction struct {
	info pluginproto.ActionInfo
	run  ActionFunc
}

// NewActionRegistry returns an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]registeredAction)}
}

// Register adds an action. Registering the same name twice is an error.
func (r *ActionRegistry) Register(info pluginproto.ActionInfo, run ActionFunc) error {
	if info.Name == "" {
		return fmt.Errorf("action name is required")
	}
	if run == nil {
		return fmt.Errorf("action %s has no handler", info.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[info.Name]; exists {
		return fmt.Errorf("action already registered: %s", info.Name)
	}
	r.actions[info.Name] = registeredAction{info: info, run: run}
	r.order = append(r.order, info.Name)
	return nil
}

// MustRegister is Register for package-level setup; it panics on error.
func (r *ActionRegistry) MustRegister(info pluginproto.ActionInfo, run ActionFunc) {
	if err := r.Register(info, run); err != nil {
		panic(err)
	}
}

// Perform runs the named action.
func (r *ActionRegistry) Perform(name string, args []string) error {
	r.mu.RLock()
	a, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown action: %s", name)
	}
	return a.run(args)
}

// List returns the catalog in registration order.
func (r *ActionRegistry) List() []pluginproto.ActionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return nil
	}
	out := make([]pluginproto.ActionInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.actions[name].info)
	}
	return out
}
