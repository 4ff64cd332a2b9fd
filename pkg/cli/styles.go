package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/platinummonkey/lsx/pkg/plugins"
)

// styles are bound to the command's output so colors are dropped when it
// is not a terminal.
type styles struct {
	header    lipgloss.Style
	name      lipgloss.Style
	dir       lipgloss.Style
	enabled   lipgloss.Style
	disabled  lipgloss.Style
	unhealthy lipgloss.Style
	faint     lipgloss.Style
	cell      lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:    r.NewStyle().Bold(true).Padding(0, 1),
		name:      r.NewStyle().Bold(true),
		dir:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		enabled:   r.NewStyle().Foreground(lipgloss.Color("2")),
		disabled:  r.NewStyle().Faint(true),
		unhealthy: r.NewStyle().Foreground(lipgloss.Color("1")),
		faint:     r.NewStyle().Faint(true),
		cell:      r.NewStyle().Padding(0, 1),
	}
}

// status renders the one-word state shown next to a plugin.
func (s styles) status(e plugins.EntryInfo) string {
	switch {
	case e.IsUnhealthy():
		return s.unhealthy.Render("unhealthy")
	case e.Enabled:
		return s.enabled.Render("enabled")
	default:
		return s.disabled.Render("disabled")
	}
}
