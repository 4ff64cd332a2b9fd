package plugins

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailed is matched by every LoadError.
	ErrLoadFailed = errors.New("plugin load failed")

	// ErrCallFailed is matched by every CallError.
	ErrCallFailed = errors.New("plugin call failed")

	ErrNotFound       = errors.New("plugin not found")
	ErrUnhealthy      = errors.New("plugin is unhealthy")
	ErrPluginDisabled = errors.New("plugin is disabled")
	ErrEvicted        = errors.New("plugin has been evicted")
	ErrDuplicateName  = errors.New("duplicate plugin name")
	ErrIncompatible   = errors.New("incompatible plugin version")

	// ErrInvalidTransition is returned for lifecycle changes the state machine forbids.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// LoadError reports why a candidate library could not be turned into a binding.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load plugin %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoadFailed, e.Err}
}

// CallError reports a failed call into a binding: a panic caught at the
// boundary, or an error response from the plugin.
type CallError struct {
	Plugin string
	Kind   string // request kind, see pluginproto.Kind
	Err    error
	Stack  []byte // set when the call panicked
}

func (e *CallError) Error() string {
	return fmt.Sprintf("plugin %s: %s: %v", e.Plugin, e.Kind, e.Err)
}

func (e *CallError) Unwrap() []error {
	return []error{ErrCallFailed, e.Err}
}

// PluginReportedError is the text of a plugin Error response.
type PluginReportedError struct {
	Message string
}

func (e *PluginReportedError) Error() string { return e.Message }

// ActionError is a failed action. Its message is exactly what the plugin
// reported so it can be shown to the user unchanged.
type ActionError struct {
	Plugin  string
	Action  string
	Message string
}

func (e *ActionError) Error() string { return e.Message }

func (e *ActionError) Is(target error) bool { return target == ErrCallFailed }

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}
