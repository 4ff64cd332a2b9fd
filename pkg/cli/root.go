package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/lsx/pkg/config"
	"github.com/platinummonkey/lsx/pkg/plugins"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// Options configures the root command.
type Options struct {
	HostOptions

	// ConfigPath replaces config.DefaultPath when --config is not given.
	ConfigPath string
}

// app holds the persistent flags shared by every command.
type app struct {
	opts       Options
	configPath string
	pluginsDir string
	logLevel   string
}

// NewRootCommand creates the lsx command tree.
func NewRootCommand(opts Options) *cobra.Command {
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "lsx",
		Short: "lsx - an extensible directory lister",
		Long: `lsx lists directories and lets native plugins add columns, badges
and commands of their own.

Plugins are shared libraries in the plugins directory. They are discovered
on every run and stay disabled until enabled with 'lsx plugins enable'.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (default is $LSX_CONFIG or ~/.config/lsx/config.yaml)")
	root.PersistentFlags().StringVar(&a.pluginsDir, "plugins-dir", "", "Plugins directory for this run")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newLsCommand(a))
	root.AddCommand(newPluginsCommand(a))
	root.AddCommand(newPluginCommand(a))

	return root
}

// Execute runs the command tree with args and returns the process exit
// code. Errors reported by a plugin action are printed exactly as the
// plugin worded them.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts Options) int {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var actionErr *plugins.ActionError
		if errors.As(err, &actionErr) {
			fmt.Fprintln(stderr, actionErr.Message)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = a.opts.ConfigPath
	}
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if a.pluginsDir != "" {
		cfg.PluginsDir = a.pluginsDir
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	return cfg, nil
}

// withHost builds a Host for one command and shuts it down afterwards.
func (a *app) withHost(cmd *cobra.Command, fn func(h *Host) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	h, err := NewHost(ctx, cfg, a.opts.HostOptions)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(context.WithoutCancel(ctx)); err != nil {
			h.Logger.WithError(err).Warn("Shutdown incomplete")
		}
	}()

	return fn(h)
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}
