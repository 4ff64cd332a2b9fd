package plugins

import (
	"fmt"
	"os"
	"plugin"

	"github.com/platinummonkey/lsx/pkg/observability"
	"github.com/platinummonkey/lsx/pkg/pluginsdk"
)

// CallGate is the single entry point a plugin exports: one encoded
// request in, one encoded response out.
type CallGate func([]byte) []byte

// Opener turns a library file into a call gate.
type Opener interface {
	Open(path string) (CallGate, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (CallGate, error)

func (f OpenerFunc) Open(path string) (CallGate, error) { return f(path) }

// NativeOpener loads Go plugins built with -buildmode=plugin and resolves
// the pluginsdk.EntrySymbol export.
type NativeOpener struct{}

// Open loads the library at path. Every failure, including a panic raised
// while the runtime initializes the plugin, is returned as a *LoadError.
func (NativeOpener) Open(path string) (gate CallGate, err error) {
	defer func() {
		if perr := observability.CapturePanic(recover()); perr != nil {
			gate, err = nil, &LoadError{Path: path, Err: perr}
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("not a regular file")}
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to open plugin: %w", err)}
	}

	sym, err := p.Lookup(pluginsdk.EntrySymbol)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("plugin does not export %q: %w", pluginsdk.EntrySymbol, err)}
	}

	switch fn := sym.(type) {
	case func([]byte) []byte:
		return fn, nil
	case *func([]byte) []byte:
		if fn == nil || *fn == nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("%s is nil", pluginsdk.EntrySymbol)}
		}
		return *fn, nil
	default:
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%s has type %T, want func([]byte) []byte", pluginsdk.EntrySymbol, sym)}
	}
}
