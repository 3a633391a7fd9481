package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/company-tasks/internal/keys"
	"github.com/nhle/company-tasks/internal/theme"
)

// bindings adapts the board key map for help rendering, hiding the
// admin-only keys from company users.
type bindings struct {
	keys  *keys.KeyMap
	admin bool
}

func (b bindings) ShortHelp() []key.Binding {
	return b.keys.ShortHelp()
}

func (b bindings) FullHelp() [][]key.Binding {
	groups := b.keys.FullHelp()
	if b.admin {
		return groups
	}
	out := make([][]key.Binding, 0, len(groups))
	for _, g := range groups {
		kept := make([]key.Binding, 0, len(g))
		for _, k := range g {
			switch k.Help().Key {
			case b.keys.CycleCompany.Help().Key, b.keys.SetPriority.Help().Key:
				continue
			}
			kept = append(kept, k)
		}
		out = append(out, kept)
	}
	return out
}

// Model is the help overlay view.
type Model struct {
	bindings bindings
	help     help.Model
	width    int
	height   int
}

// New creates a new help view model.
func New(k *keys.KeyMap, admin bool, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		bindings: bindings{keys: k, admin: admin},
		help:     h,
		width:    width,
		height:   height,
	}
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Board shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.help.View(m.bindings))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// ShortView renders the one-line hint shown in the status bar.
func (m Model) ShortView() string {
	m.help.ShowAll = false
	return m.help.View(m.bindings)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
