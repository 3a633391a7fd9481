package tasklist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/company-tasks/internal/keys"
	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/theme"
)

// Model is the task list panel of the board.
type Model struct {
	list     list.Model
	keys     *keys.KeyMap
	archived bool
	filtered bool
	width    int
	height   int
}

// New creates a new task list model.
func New(k *keys.KeyMap, showCompany bool, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{ShowCompany: showCompany}, width, height)
	l.Title = "Tasks"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetTasks replaces the displayed tasks, keeping the cursor on the same
// task when it is still present.
func (m *Model) SetTasks(tasks []model.Task, archived, filtered bool) tea.Cmd {
	prev := ""
	if t, ok := m.Selected(); ok {
		prev = t.ID
	}

	items := make([]list.Item, len(tasks))
	cursor := 0
	for i, t := range tasks {
		items[i] = TaskItem{Task: t}
		if t.ID == prev {
			cursor = i
		}
	}

	m.archived = archived
	m.filtered = filtered
	if archived {
		m.list.Title = "Archived tasks"
	} else {
		m.list.Title = "Tasks"
	}

	cmd := m.list.SetItems(items)
	m.list.Select(cursor)
	return cmd
}

// Selected returns the task under the cursor.
func (m Model) Selected() (model.Task, bool) {
	ti, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return ti.Task, true
}

// Len returns the number of displayed tasks.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Update moves the cursor. Other keys are handled by the board.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.keys.Down):
			m.list.CursorDown()
		case key.Matches(km, m.keys.Up):
			m.list.CursorUp()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the task list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when no tasks are displayed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.archived:
		return style.Render("No archived tasks.\nPress a to go back.")
	case m.filtered:
		return style.Render("No matching tasks.\nPress x to clear filters.")
	default:
		return style.Render("No tasks yet.\n\nPress n to file one.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
