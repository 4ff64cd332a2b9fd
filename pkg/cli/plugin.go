package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPluginCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin NAME ACTION [ARGS...]",
		Short: "Run a plugin action",
		Long: `Run one action of an enabled plugin. Everything after ACTION is passed
to the plugin untouched. The plugin's own message is printed on success
and on failure.

Examples:
  lsx plugin git status
  lsx plugin git log -n 5`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHost(cmd, func(h *Host) error {
				msg, err := h.Dispatcher.PerformAction(cmd.Context(), args[0], args[1], args[2:])
				if err != nil {
					return err
				}
				if msg != "" {
					fmt.Fprintln(cmd.OutOrStdout(), msg)
				}
				return nil
			})
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
