package tasklist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// ItemDelegate implements list.ItemDelegate for rendering task rows.
type ItemDelegate struct {
	// ShowCompany adds the company name to each row. Company users only
	// ever see their own company, so the board turns it off for them.
	ShowCompany bool

	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, d.renderLine(ti.Task, index == m.Index()))
}

func (d ItemDelegate) renderLine(t model.Task, isSelected bool) string {
	now := time.Now
	if d.now != nil {
		now = d.now
	}

	prefix := "○"
	switch t.Status {
	case model.StatusProgress:
		prefix = "◐"
	case model.StatusCompleted:
		prefix = "✓"
	}

	statusBadge := theme.StatusStyle(t.Status).Render(t.Status.Label())
	priBadge := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	company := ""
	if d.ShowCompany {
		name := t.CompanyName
		if name == "" {
			name = "unknown company"
		}
		company = lipgloss.NewStyle().
			Foreground(theme.ColorMagenta).
			Render(" @" + name)
	}

	due := ""
	if t.DueDate != nil {
		due = theme.DueDateStyle.Render(" " + t.DueDate.Format("Jan 02"))
	}
	overdue := ""
	if t.IsOverdue(now()) {
		overdue = theme.OverdueStyle.Render(" OVERDUE")
	}

	extras := ""
	if t.CommentCount > 0 || t.AttachmentCount > 0 {
		extras = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render(fmt.Sprintf(" [%dc %da]", t.CommentCount, t.AttachmentCount))
	}

	line := fmt.Sprintf("%s %s %s %s%s%s%s%s",
		prefix, statusBadge, priBadge, t.Title, company, due, overdue, extras)

	if t.Status == model.StatusCompleted {
		line = theme.DimmedStyle.Render(line)
	}
	if isSelected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "HI"
	case model.PriorityMedium:
		return "MD"
	case model.PriorityLow:
		return "LO"
	default:
		return "??"
	}
}
