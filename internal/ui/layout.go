package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/company-tasks/internal/theme"
)

const (
	minSidebarWidth = 18
	maxSidebarWidth = 32
)

// Layout manages the board's terminal layout dimensions: a header line,
// a sidebar and task list side by side, and a status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available between header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// SidebarWidth is a quarter of the terminal, clamped to a readable range.
func (l Layout) SidebarWidth() int {
	w := l.Width / 4
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	if w > maxSidebarWidth {
		w = maxSidebarWidth
	}
	return w
}

// ListWidth returns the width left for the task list.
func (l Layout) ListWidth() int {
	w := l.Width - l.SidebarWidth() - 1
	if w < 0 {
		return 0
	}
	return w
}

// RenderHeader renders the top bar with a title on the left and a summary
// (usually the status counts) on the right.
func (l Layout) RenderHeader(title string, summary string) string {
	return l.fill(theme.HeaderStyle, title, summary)
}

// RenderStatusBar renders the bottom status bar.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle, hints, "")
}

func (l Layout) fill(style lipgloss.Style, left, right string) string {
	leftRendered := style.Render(left)
	rightRendered := ""
	if right != "" {
		rightRendered = style.Align(lipgloss.Right).Render(right)
	}

	gap := l.Width - lipgloss.Width(leftRendered) - lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, leftRendered, filler, rightRendered)
}

// RenderColumns places the sidebar and the task list side by side.
func (l Layout) RenderColumns(sidebar, list string) string {
	h := l.ContentHeight()
	left := lipgloss.NewStyle().
		Width(l.SidebarWidth()).
		Height(h).
		MaxHeight(h).
		Render(sidebar)
	sep := lipgloss.NewStyle().
		Foreground(theme.ColorBorder).
		Height(h).
		Render("│")
	right := lipgloss.NewStyle().
		Width(l.ListWidth()).
		Height(h).
		MaxHeight(h).
		Render(list)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
