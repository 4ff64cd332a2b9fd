package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/lsx/pkg/pluginproto"
	"github.com/platinummonkey/lsx/pkg/plugins"
)

func newPluginsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage plugins",
		Long: `Manage the plugins found in the plugins directory.

Examples:
  lsx plugins list
  lsx plugins enable git
  lsx plugins actions git
  lsx plugins clean --remove-files`,
	}

	cmd.AddCommand(newPluginsListCommand(a))
	cmd.AddCommand(newPluginsEnableCommand(a))
	cmd.AddCommand(newPluginsDisableCommand(a))
	cmd.AddCommand(newPluginsActionsCommand(a))
	cmd.AddCommand(newPluginsCleanCommand(a))
	cmd.AddCommand(newPluginsUseCommand(a))
	cmd.AddCommand(newPluginsWatchCommand(a))
	return cmd
}

func newPluginsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered plugins and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHost(cmd, func(h *Host) error {
				printPluginList(cmd.OutOrStdout(), h.Registry.List(), h.Registry.Dir())
				return nil
			})
		},
	}
}

func printPluginList(w io.Writer, entries []plugins.EntryInfo, dir string) {
	st := newStyles(w)
	if len(entries) == 0 {
		fmt.Fprintf(w, "No plugins found in %s\n", dir)
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("NAME", "VERSION", "STATUS", "VIEWS", "DESCRIPTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			return st.cell
		})

	for _, e := range entries {
		desc := e.Descriptor.Description
		if e.IsUnhealthy() {
			desc = e.Health.Reason
		}
		t.Row(
			st.name.Render(e.Name),
			e.Descriptor.Version,
			st.status(e),
			strings.Join(e.Descriptor.SupportedViews, ","),
			desc,
		)
	}
	fmt.Fprintln(w, t.String())
}

func newPluginsEnableCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enable NAME",
		Short: "Enable a healthy plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHost(cmd, func(h *Host) error {
				if err := h.Registry.Enable(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enabled %s\n", args[0])
				return nil
			})
		},
	}
}

func newPluginsDisableCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disable NAME",
		Short: "Disable a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHost(cmd, func(h *Host) error {
				if err := h.Registry.Disable(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Disabled %s\n", args[0])
				return nil
			})
		},
	}
}

func newPluginsActionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actions NAME",
		Short: "Show the actions a plugin provides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHost(cmd, func(h *Host) error {
				actions, err := h.Dispatcher.AvailableActions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printActions(cmd.OutOrStdout(), args[0], actions)
				return nil
			})
		},
	}
}

func printActions(w io.Writer, plugin string, actions []pluginproto.ActionInfo) {
	st := newStyles(w)
	if len(actions) == 0 {
		fmt.Fprintf(w, "%s provides no actions\n", plugin)
		return
	}

	fmt.Fprintf(w, "Actions for %s:\n", st.name.Render(plugin))
	for _, action := range actions {
		fmt.Fprintf(w, "\n  %s  %s\n", st.name.Render(action.Name), action.Description)
		if action.Usage != "" {
			fmt.Fprintf(w, "    usage: %s\n", action.Usage)
		}
		for _, example := range action.Examples {
			fmt.Fprintf(w, "    %s\n", st.faint.Render("$ "+example))
		}
	}
}

func newPluginsCleanCommand(a *app) *cobra.Command {
	var (
		removeFiles bool
		dir         string
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Re-check every plugin and evict the broken ones",
		Long: `Re-load and re-probe every plugin. Plugins whose file is gone, whose
library no longer loads or that fail the identity check are evicted.
With --remove-files their library files are deleted as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHost(cmd, func(h *Host) error {
				opts := plugins.CleanOptions{
					Dir:         dir,
					RemoveFiles: h.Config.Plugins.RemoveOnClean,
				}
				if cmd.Flags().Changed("remove-files") {
					opts.RemoveFiles = removeFiles
				}

				outcomes, err := h.Registry.Clean(cmd.Context(), opts)
				printCleanOutcomes(cmd.OutOrStdout(), outcomes)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&removeFiles, "remove-files", false, "Delete library files of evicted plugins (default from plugins.remove_on_clean)")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to rescan (default is the plugins directory)")
	return cmd
}

func printCleanOutcomes(w io.Writer, outcomes []plugins.CleanOutcome) {
	st := newStyles(w)
	evicted := 0
	for _, o := range outcomes {
		switch {
		case o.Evicted:
			evicted++
			line := fmt.Sprintf("%s %s: %s", st.unhealthy.Render("evicted"), o.Name, o.Reason)
			if o.FileRemoved {
				line += " (file removed)"
			}
			fmt.Fprintln(w, line)
		case o.Reason != "":
			line := fmt.Sprintf("%s %s: %s", st.unhealthy.Render("rejected"), o.Name, o.Reason)
			if o.FileRemoved {
				line += " (file removed)"
			}
			fmt.Fprintln(w, line)
		}
	}

	if evicted == 0 {
		fmt.Fprintln(w, "No plugins evicted")
		return
	}
	fmt.Fprintf(w, "Evicted %d plugin(s)\n", evicted)
}

func newPluginsUseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use",
		Short: "Pick enabled plugins interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHost(cmd, func(h *Host) error {
				out := cmd.OutOrStdout()
				if len(h.Registry.List()) == 0 {
					fmt.Fprintf(out, "No plugins found in %s\n", h.Registry.Dir())
					return nil
				}

				program := tea.NewProgram(
					newPickerModel(h.Registry, newStyles(out)),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(out),
				)
				if _, err := program.Run(); err != nil {
					return fmt.Errorf("plugin picker failed: %w", err)
				}
				return nil
			})
		},
	}
}

func newPluginsWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Evict plugins as their library files are deleted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHost(cmd, func(h *Host) error {
				out := cmd.OutOrStdout()
				w, err := plugins.NewWatcher(h.Registry, h.Registry.Dir())
				if err != nil {
					return err
				}
				defer w.Close()

				w.OnEvict = func(name, path string) {
					fmt.Fprintf(out, "evicted %s (%s removed)\n", name, path)
				}
				fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", h.Registry.Dir())
				w.Run(cmd.Context())
				return nil
			})
		},
	}
}
