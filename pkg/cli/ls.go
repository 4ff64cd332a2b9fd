package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/lsx/pkg/pluginproto"
)

const defaultView = "default"

func newLsCommand(a *app) *cobra.Command {
	var (
		view string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "ls [DIR]",
		Short: "List a directory with plugin fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return a.withHost(cmd, func(h *Host) error {
				return runLs(cmd, h, dir, view, all)
			})
		},
	}

	cmd.Flags().StringVar(&view, "view", defaultView, "View whose plugin fields are shown")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include entries starting with .")
	return cmd
}

func runLs(cmd *cobra.Command, h *Host, dir, view string, all bool) error {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	entries := make([]pluginproto.DecoratedEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !all && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		info, err := os.Lstat(path)
		if err != nil {
			h.Logger.WithError(err).Debugf("Skipping %s", path)
			continue
		}
		entries = append(entries, pluginproto.EntryFromFileInfo(path, info))
	}

	ctx := cmd.Context()
	decorated := h.Dispatcher.DecorateAll(ctx, entries)
	printListing(cmd.OutOrStdout(), decorated, func(e pluginproto.DecoratedEntry) []string {
		return h.Dispatcher.FormatFields(ctx, e, view)
	})
	return nil
}

func printListing(w io.Writer, entries []pluginproto.DecoratedEntry, fields func(pluginproto.DecoratedEntry) []string) {
	st := newStyles(w)
	for _, e := range entries {
		name := filepath.Base(e.Path)
		if e.Metadata.IsDir {
			name = st.dir.Render(name + "/")
		}
		if extra := fields(e); len(extra) > 0 {
			name += "  " + strings.Join(extra, "  ")
		}
		fmt.Fprintln(w, name)
	}
}
