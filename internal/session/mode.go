package session

// Mode selects which task population the session displays.
type Mode string

const (
	// ModeNormal shows live tasks narrowed by the filter composer.
	ModeNormal Mode = "normal"
	// ModeArchived shows archived tasks in the archived scope, unfiltered by facets.
	ModeArchived Mode = "archived"
)

func (m Mode) String() string { return string(m) }
