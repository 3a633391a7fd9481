package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the board keybindings.
type KeyMap struct {
	// Task list navigation
	Down key.Binding
	Up   key.Binding

	// Sidebar navigation
	SidebarPrev key.Binding
	SidebarNext key.Binding
	Select      key.Binding

	// Facets
	CycleStatus   key.Binding
	CyclePriority key.Binding
	CycleCompany  key.Binding
	ClearFacets   key.Binding

	// Archived mode
	Archived key.Binding

	// Actions
	ViewTask    key.Binding
	Comment     key.Binding
	Advance     key.Binding
	SetPriority key.Binding
	Restore     key.Binding
	NewTask     key.Binding
	Refresh     key.Binding

	Back key.Binding
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		SidebarPrev: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous company"),
		),
		SidebarNext: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next company"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select company"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "status filter"),
		),
		CyclePriority: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "priority filter"),
		),
		CycleCompany: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "company filter"),
		),
		ClearFacets: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear filters"),
		),
		Archived: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle archived"),
		),
		ViewTask: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "view task"),
		),
		Comment: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "comment"),
		),
		Advance: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "advance status"),
		),
		SetPriority: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "change priority"),
		),
		Restore: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "restore archived"),
		),
		NewTask: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.SidebarPrev, k.SidebarNext,
		k.Archived, k.NewTask, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Back, k.Quit},
		{k.SidebarPrev, k.SidebarNext, k.Select},
		{k.CycleStatus, k.CyclePriority, k.CycleCompany, k.ClearFacets},
		{k.ViewTask, k.Comment, k.Advance, k.SetPriority, k.Restore},
		{k.Archived, k.NewTask, k.Refresh, k.Help},
	}
}
