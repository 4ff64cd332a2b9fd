package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/platinummonkey/lsx/pkg/plugins"
)

// pickerModel is the 'plugins use' screen: a checklist of plugins where
// toggling a row enables or disables it immediately.
type pickerModel struct {
	registry *plugins.Registry
	styles   styles
	items    []plugins.EntryInfo
	cursor   int
	message  string
}

func newPickerModel(registry *plugins.Registry, st styles) pickerModel {
	return pickerModel{
		registry: registry,
		styles:   st,
		items:    registry.List(),
	}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case " ", "enter", "x":
		m.toggle()
	}
	return m, nil
}

func (m *pickerModel) toggle() {
	if len(m.items) == 0 {
		return
	}
	item := m.items[m.cursor]

	var err error
	if item.Enabled {
		err = m.registry.Disable(item.Name)
	} else {
		err = m.registry.Enable(item.Name)
	}
	if err != nil {
		m.message = err.Error()
		return
	}

	if fresh, err := m.registry.Get(item.Name); err == nil {
		m.items[m.cursor] = fresh
	}
	if m.items[m.cursor].Enabled {
		m.message = "Enabled " + item.Name
	} else {
		m.message = "Disabled " + item.Name
	}
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.name.Render("Plugins"))
	b.WriteString(m.styles.faint.Render("  (space toggles, q quits)"))
	b.WriteString("\n\n")

	for i, item := range m.items {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		box := "[ ]"
		switch {
		case item.IsUnhealthy():
			box = m.styles.unhealthy.Render("[!]")
		case item.Enabled:
			box = m.styles.enabled.Render("[x]")
		}

		detail := item.Descriptor.Description
		if item.IsUnhealthy() {
			detail = item.Health.Reason
		}
		fmt.Fprintf(&b, "%s %s %s %s  %s\n", cursor, box, item.Name, item.Descriptor.Version, m.styles.faint.Render(detail))
	}

	if m.message != "" {
		b.WriteString("\n" + m.message + "\n")
	}
	return b.String()
}
