package plugins

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/lsx/pkg/pluginproto"
	"github.com/platinummonkey/lsx/pkg/pluginsdk"
)

// fakePlugin is a pluginsdk.Plugin whose behavior each test customizes.
type fakePlugin struct {
	name        string
	version     string
	description string
	views       []string

	decorate func(pluginproto.DecoratedEntry) (pluginproto.DecoratedEntry, error)
	format   func(pluginproto.DecoratedEntry, string) (string, bool)
	actions  *pluginsdk.ActionRegistry
}

func newFakePlugin(name, version string, views ...string) *fakePlugin {
	return &fakePlugin{
		name:        name,
		version:     version,
		description: name + " test plugin",
		views:       views,
		actions:     pluginsdk.NewActionRegistry(),
	}
}

func (p *fakePlugin) Name() string             { return p.name }
func (p *fakePlugin) Version() string          { return p.version }
func (p *fakePlugin) Description() string      { return p.description }
func (p *fakePlugin) SupportedViews() []string { return p.views }

func (p *fakePlugin) Decorate(e pluginproto.DecoratedEntry) (pluginproto.DecoratedEntry, error) {
	if p.decorate == nil {
		return e, nil
	}
	return p.decorate(e)
}

func (p *fakePlugin) FormatField(e pluginproto.DecoratedEntry, view string) (string, bool) {
	if p.format == nil {
		return "", false
	}
	return p.format(e, view)
}

func (p *fakePlugin) Actions() *pluginsdk.ActionRegistry { return p.actions }

// fakeOpener serves gates by file name and fails for unknown files the
// way a library without the entry symbol does.
type fakeOpener struct {
	mu    sync.Mutex
	gates map[string]CallGate
	opens map[string]int
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{gates: make(map[string]CallGate), opens: make(map[string]int)}
}

func (o *fakeOpener) add(fileName string, p pluginsdk.Plugin) {
	o.addGate(fileName, CallGate(pluginsdk.Gate(p)))
}

func (o *fakeOpener) addGate(fileName string, gate CallGate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gates[fileName] = gate
}

func (o *fakeOpener) Open(path string) (CallGate, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	base := filepath.Base(path)
	o.opens[base]++
	gate, ok := o.gates[base]
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("plugin does not export %q", pluginsdk.EntrySymbol)}
	}
	return gate, nil
}

func (o *fakeOpener) openCount(fileName string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[fileName]
}

// pluginDir creates a directory holding empty files with the given names.
func pluginDir(t testing.TB, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0o644))
	}
	return dir
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRegistry(opener Opener, store EnabledStore) *Registry {
	return NewRegistry(Options{
		Opener:       opener,
		EnabledStore: store,
		ProbeTimeout: time.Second,
		Logger:       quietLogger(),
	})
}

// lib is shorthand for the platform library file name of a logical name.
func lib(name string) string { return LibraryFileName(name) }

var errNotARepo = errors.New("not a repository")

func testEntry(path string) pluginproto.DecoratedEntry {
	return pluginproto.DecoratedEntry{
		Path: path,
		Metadata: pluginproto.EntryMetadata{
			Size:     42,
			Modified: 1700000000,
			IsFile:   true,
		},
	}
}
