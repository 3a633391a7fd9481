package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/company-tasks/internal/keys"
	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/theme"
)

// BackMsg signals the parent to return to the board.
type BackMsg struct{}

// CommentMsg asks the parent to post a comment on TaskID.
type CommentMsg struct {
	TaskID string
	Body   string
}

// Detail is a task together with its comments and attachment metadata.
type Detail struct {
	Task        model.Task
	Comments    []model.Comment
	Attachments []model.Attachment
}

// LoadedMsg carries a freshly loaded task detail.
type LoadedMsg struct {
	Detail *Detail
	Err    error
}

// Model is the task detail view component.
type Model struct {
	detail    *Detail
	viewport  viewport.Model
	input     textinput.Model
	composing bool
	keys      *keys.KeyMap
	width     int
	height    int
	loading   bool
	err       error
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	ti := textinput.New()
	ti.Placeholder = "write a comment..."
	ti.Prompt = "> "
	ti.Width = width - 4

	return Model{
		viewport: vp,
		input:    ti,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// TaskID returns the ID of the displayed task, or "" when none is loaded.
func (m Model) TaskID() string {
	if m.detail == nil {
		return ""
	}
	return m.detail.Task.ID
}

// Composing reports whether the comment input has focus.
func (m Model) Composing() bool {
	return m.composing
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Err == nil {
			m.SetDetail(msg.Detail)
		}
		return m, nil

	case tea.KeyMsg:
		if m.composing {
			return m.handleComposeKeys(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Comment):
			if m.detail == nil {
				return m, nil
			}
			m.composing = true
			m.input.Reset()
			return m, m.input.Focus()
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleComposeKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.composing = false
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		body := strings.TrimSpace(m.input.Value())
		m.composing = false
		m.input.Blur()
		if body == "" || m.detail == nil {
			return m, nil
		}
		taskID := m.detail.Task.ID
		return m, func() tea.Msg { return CommentMsg{TaskID: taskID, Body: body} }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	centered := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return centered.Render("Loading task details...")
	case m.err != nil:
		return centered.Render(theme.ErrorStyle.Render(m.err.Error()))
	case m.detail == nil:
		return centered.Render("No task selected")
	}

	if m.composing {
		return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.input.View())
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.detail == nil {
		return ""
	}

	task := m.detail.Task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	statusBadge := theme.StatusStyle(task.Status).Render(task.Status.Label())
	priBadge := theme.PriorityStyle(task.Priority).Render(task.Priority.Label())
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, statusBadge, "  ", priBadge))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-9s", label+":")), valStyle.Render(value)))
	}

	company := task.CompanyName
	if company == "" {
		company = "unknown company"
	}
	meta("Company", company)
	if task.DueDate != nil {
		meta("Due", task.DueDate.Format("2006-01-02"))
	}
	if !task.CreatedAt.IsZero() {
		meta("Created", task.CreatedAt.Format("2006-01-02 15:04"))
	}
	if !task.UpdatedAt.IsZero() {
		meta("Updated", task.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if task.ArchivedAt != nil {
		meta("Archived", task.ArchivedAt.Format("2006-01-02 15:04"))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	sections = append(sections, "", separator, "", headerStyle.Render("Description"))
	body := task.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	if len(m.detail.Attachments) > 0 {
		sections = append(sections, "", separator, "",
			headerStyle.Render(fmt.Sprintf("Attachments (%d)", len(m.detail.Attachments))))
		for _, a := range m.detail.Attachments {
			sections = append(sections, fmt.Sprintf("• %s  %s",
				a.Filename, metaStyle.Render(humanize.IBytes(uint64(a.FileSize)))))
		}
	}

	sections = append(sections, "", separator, "",
		headerStyle.Render(fmt.Sprintf("Comments (%d)", len(m.detail.Comments))), "")

	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	for _, c := range m.detail.Comments {
		author := c.AuthorName
		if author == "" {
			author = "unknown"
		}
		sections = append(sections,
			fmt.Sprintf("%s  %s", authorStyle.Render(author), metaStyle.Render(humanize.Time(c.CreatedAt))),
			c.Body,
			"")
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDetail updates the task being displayed and re-renders the content.
func (m *Model) SetDetail(d *Detail) {
	m.detail = d
	m.loading = false
	m.err = nil
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.input.Width = width - 4
	if m.detail != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
