package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/lsx/pkg/config"
	"github.com/platinummonkey/lsx/pkg/pluginproto"
	"github.com/platinummonkey/lsx/pkg/plugins"
	"github.com/platinummonkey/lsx/pkg/pluginsdk"
)

// gitPlugin marks every file clean and offers a status action plus one
// that always fails like a real repository check would.
type gitPlugin struct {
	actions *pluginsdk.ActionRegistry
}

func newGitPlugin() *gitPlugin {
	p := &gitPlugin{actions: pluginsdk.NewActionRegistry()}
	p.actions.MustRegister(pluginproto.ActionInfo{
		Name:        "status",
		Usage:       "lsx plugin git status",
		Description: "Show repository status",
		Examples:    []string{"lsx plugin git status"},
	}, func([]string) error { return nil })
	p.actions.MustRegister(pluginproto.ActionInfo{
		Name:        "fail",
		Description: "Always fails",
	}, func([]string) error { return errors.New("fatal: not a git repository") })
	return p
}

func (p *gitPlugin) Name() string             { return "git" }
func (p *gitPlugin) Version() string          { return "1.4.0" }
func (p *gitPlugin) Description() string      { return "git status badges" }
func (p *gitPlugin) SupportedViews() []string { return []string{"default", "long"} }

func (p *gitPlugin) Decorate(e pluginproto.DecoratedEntry) (pluginproto.DecoratedEntry, error) {
	if e.CustomFields == nil {
		e.CustomFields = map[string]string{}
	}
	e.CustomFields["git_status"] = "clean"
	return e, nil
}

func (p *gitPlugin) FormatField(e pluginproto.DecoratedEntry, view string) (string, bool) {
	v, ok := e.Field("git_status")
	if !ok || view != "default" {
		return "", false
	}
	return "[" + v + "]", true
}

func (p *gitPlugin) Actions() *pluginsdk.ActionRegistry { return p.actions }

// testEnv is a config file and plugins directory holding git.so and a
// broken.so that does not export the entry symbol.
type testEnv struct {
	configPath string
	pluginsDir string
	opener     plugins.Opener
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("LSX_CONFIG", "")
	t.Setenv("LSX_ENABLED_PLUGINS", "")
	os.Unsetenv("LSX_ENABLED_PLUGINS")

	root := t.TempDir()
	env := &testEnv{
		configPath: filepath.Join(root, "config.yaml"),
		pluginsDir: filepath.Join(root, "plugins"),
	}
	require.NoError(t, os.MkdirAll(env.pluginsDir, 0o755))
	for _, name := range []string{"git", "broken"} {
		require.NoError(t, os.WriteFile(filepath.Join(env.pluginsDir, plugins.LibraryFileName(name)), nil, 0o644))
	}

	git := newGitPlugin()
	env.opener = plugins.OpenerFunc(func(path string) (plugins.CallGate, error) {
		if filepath.Base(path) == plugins.LibraryFileName("git") {
			return pluginsdk.Gate(git), nil
		}
		return nil, &plugins.LoadError{Path: path, Err: fmt.Errorf("plugin does not export %q", pluginsdk.EntrySymbol)}
	})

	cfg, err := config.Load(env.configPath)
	require.NoError(t, err)
	cfg.PluginsDir = env.pluginsDir
	require.NoError(t, cfg.Save())
	return env
}

func (e *testEnv) options() Options {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return Options{
		HostOptions: HostOptions{Opener: e.opener, Logger: logger},
		ConfigPath:  e.configPath,
	}
}

// run executes lsx with args and returns stdout, stderr and the exit code.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr, e.options())
	return stdout.String(), stderr.String(), code
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand(Options{})
	assert.Equal(t, "lsx", root.Name())

	expected := map[string]bool{"ls": false, "plugins": false, "plugin": false}
	for _, cmd := range root.Commands() {
		if _, ok := expected[cmd.Name()]; ok {
			expected[cmd.Name()] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "Expected subcommand %s to be registered", name)
	}

	pluginsCmd, _, err := root.Find([]string{"plugins"})
	require.NoError(t, err)
	var subs []string
	for _, cmd := range pluginsCmd.Commands() {
		subs = append(subs, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"list", "enable", "disable", "actions", "clean", "use", "watch"}, subs)
}

func TestExecute_Version(t *testing.T) {
	var stdout bytes.Buffer
	code := Execute(context.Background(), []string{"--version"}, &stdout, io.Discard, Options{})
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "lsx version dev")
}

func TestPluginsList(t *testing.T) {
	env := newTestEnv(t)

	out, _, code := env.run(t, "plugins", "list")
	require.Equal(t, 0, code)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "git")
	assert.Contains(t, out, "1.4.0")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "unhealthy")
	assert.Contains(t, out, "does not export")
}

func TestPluginsList_EmptyDirectory(t *testing.T) {
	env := newTestEnv(t)
	empty := t.TempDir()

	out, _, code := env.run(t, "--plugins-dir", empty, "plugins", "list")
	require.Equal(t, 0, code)
	assert.Equal(t, fmt.Sprintf("No plugins found in %s\n", empty), out)
}

func TestPluginsEnableDisablePersists(t *testing.T) {
	env := newTestEnv(t)

	out, _, code := env.run(t, "plugins", "enable", "git")
	require.Equal(t, 0, code)
	assert.Equal(t, "Enabled git\n", out)

	cfg, err := config.Load(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"git"}, cfg.EnabledPlugins)

	out, _, _ = env.run(t, "plugins", "list")
	assert.Contains(t, out, "enabled")

	out, _, code = env.run(t, "plugins", "disable", "git")
	require.Equal(t, 0, code)
	assert.Equal(t, "Disabled git\n", out)

	cfg, err = config.Load(env.configPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.EnabledPlugins)
}

func TestPluginsEnable_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, code := env.run(t, "plugins", "enable", "missing")
	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: plugin not found: missing\n", stderr)

	_, stderr, code = env.run(t, "plugins", "enable", "broken")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "plugin is unhealthy: broken")
}

func TestPluginAction(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, code := env.run(t, "plugin", "git", "status")
	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: plugin is disabled: git\n", stderr)

	_, _, code = env.run(t, "plugins", "enable", "git")
	require.Equal(t, 0, code)

	out, stderr, code := env.run(t, "plugin", "git", "status", "--short")
	assert.Equal(t, 0, code)
	assert.Empty(t, out)
	assert.Empty(t, stderr)
}

func TestPluginAction_FailureIsVerbatim(t *testing.T) {
	env := newTestEnv(t)
	_, _, code := env.run(t, "plugins", "enable", "git")
	require.Equal(t, 0, code)

	_, stderr, code := env.run(t, "plugin", "git", "fail")
	assert.Equal(t, 1, code)
	assert.Equal(t, "fatal: not a git repository\n", stderr)

	_, stderr, code = env.run(t, "plugin", "git", "nope")
	assert.Equal(t, 1, code)
	assert.Equal(t, "unknown action: nope\n", stderr)
}

func TestPluginsActions(t *testing.T) {
	env := newTestEnv(t)

	// The catalog is available before the plugin is enabled.
	out, _, code := env.run(t, "plugins", "actions", "git")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Actions for git")
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "Show repository status")
	assert.Contains(t, out, "usage: lsx plugin git status")
	assert.Contains(t, out, "$ lsx plugin git status")
}

func TestLs(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), nil, 0o644))

	out, _, code := env.run(t, "ls", dir)
	require.Equal(t, 0, code)
	assert.Equal(t, "a.txt\nsub/\n", out)

	_, _, code = env.run(t, "plugins", "enable", "git")
	require.Equal(t, 0, code)

	out, _, code = env.run(t, "ls", dir, "--all")
	require.Equal(t, 0, code)
	assert.Equal(t, ".hidden  [clean]\na.txt  [clean]\nsub/  [clean]\n", out)

	out, _, code = env.run(t, "ls", dir, "--view", "long")
	require.Equal(t, 0, code)
	assert.Equal(t, "a.txt\nsub/\n", out)
}

func TestLs_MissingDirectory(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, code := env.run(t, "ls", filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to read directory")
}

func TestPluginsClean(t *testing.T) {
	env := newTestEnv(t)
	brokenPath := filepath.Join(env.pluginsDir, plugins.LibraryFileName("broken"))

	out, _, code := env.run(t, "plugins", "clean")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "evicted broken")
	assert.Contains(t, out, "Evicted 1 plugin(s)")
	assert.FileExists(t, brokenPath)

	out, _, code = env.run(t, "plugins", "clean", "--remove-files")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "(file removed)")
	assert.NoFileExists(t, brokenPath)

	out, _, code = env.run(t, "plugins", "clean")
	require.Equal(t, 0, code)
	assert.Equal(t, "No plugins evicted\n", out)
}

func TestNewHost_MetricsTextfile(t *testing.T) {
	env := newTestEnv(t)
	cfg, err := config.Load(env.configPath)
	require.NoError(t, err)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "lsx.prom")

	h, err := NewHost(context.Background(), cfg, env.options().HostOptions)
	require.NoError(t, err)
	require.NotNil(t, h.Metrics)
	require.NoError(t, h.Close(context.Background()))

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `lsx_plugin_loads_total{status="ok"} 1`)
	assert.Contains(t, string(data), `lsx_plugin_loads_total{status="load_failed"} 1`)
}

func TestPickerModel(t *testing.T) {
	env := newTestEnv(t)
	cfg, err := config.Load(env.configPath)
	require.NoError(t, err)
	h, err := NewHost(context.Background(), cfg, env.options().HostOptions)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close(context.Background()) })

	var m tea.Model = newPickerModel(h.Registry, newStyles(io.Discard))

	// Rows follow registration order; find git.
	picker := m.(pickerModel)
	gitRow := -1
	for i, item := range picker.items {
		if item.Name == "git" {
			gitRow = i
		}
	}
	require.NotEqual(t, -1, gitRow)

	for i := 0; i < gitRow; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.Contains(t, m.View(), "Enabled git")
	assert.Contains(t, m.View(), "[x] git")

	info, err := h.Registry.Get("git")
	require.NoError(t, err)
	assert.True(t, info.Enabled)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "Disabled git")
	info, err = h.Registry.Get("git")
	require.NoError(t, err)
	assert.False(t, info.Enabled)

	// The broken plugin cannot be enabled.
	brokenRow := 1 - gitRow
	for m.(pickerModel).cursor != brokenRow {
		if brokenRow > m.(pickerModel).cursor {
			m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
		} else {
			m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
		}
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.Contains(t, m.View(), "plugin is unhealthy: broken")
	assert.Contains(t, m.View(), "[!] broken")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
