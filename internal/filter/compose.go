package filter

import (
	"fmt"

	"github.com/nhle/company-tasks/internal/model"
)

// Selection holds the optional facet filters chosen by the user.
// A nil field places no constraint on that facet.
type Selection struct {
	Status   *model.Status   `json:"status,omitempty"`
	Priority *model.Priority `json:"priority,omitempty"`
	Company  *string         `json:"company,omitempty"`
}

// IsEmpty reports whether no facet is set.
func (s Selection) IsEmpty() bool {
	return s.Status == nil && s.Priority == nil && s.Company == nil
}

// Validate rejects facet values outside the closed enumerations.
func (s Selection) Validate() error {
	if s.Status != nil && !s.Status.Valid() {
		return fmt.Errorf("invalid status filter %q", *s.Status)
	}
	if s.Priority != nil && !s.Priority.Valid() {
		return fmt.Errorf("invalid priority filter %q", *s.Priority)
	}
	return nil
}

// ParseSelection builds a Selection from raw facet values, treating empty
// strings as absent.
func ParseSelection(status, priority, company string) (Selection, error) {
	var sel Selection
	if status != "" {
		st, err := model.ParseStatus(status)
		if err != nil {
			return Selection{}, err
		}
		sel.Status = &st
	}
	if priority != "" {
		p, err := model.ParsePriority(priority)
		if err != nil {
			return Selection{}, err
		}
		sel.Priority = &p
	}
	if company != "" {
		c := company
		sel.Company = &c
	}
	return sel, nil
}

// Counts summarizes displayed tasks by status.
type Counts struct {
	Total     int `json:"total"`
	Open      int `json:"open"`
	Progress  int `json:"progress"`
	Completed int `json:"completed"`
}

// CountByStatus tallies tasks per status.
func CountByStatus(tasks []model.Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case model.StatusOpen:
			c.Open++
		case model.StatusProgress:
			c.Progress++
		case model.StatusCompleted:
			c.Completed++
		}
	}
	return c
}

// Result is the displayed subset of visible tasks plus derived counts.
type Result struct {
	Tasks  []model.Task `json:"tasks"`
	Counts Counts       `json:"counts"`
}

// EffectiveCompany returns the company constraint Compose applies for role:
// the facet company wins over the sidebar selection, and only admins are
// narrowed by company at all.
func EffectiveCompany(sel Selection, sidebar *string, role model.Role) *string {
	if role != model.RoleAdmin {
		return nil
	}
	if sel.Company != nil && *sel.Company != "" {
		return sel.Company
	}
	if sidebar != nil && *sidebar != "" {
		return sidebar
	}
	return nil
}

// Compose narrows vis.Tasks by status, then priority, then (admins only)
// the effective company, and counts the result. The returned tasks are an
// order-preserving subsequence of vis.Tasks.
func Compose(vis Visibility, sel Selection, sidebar *string, role model.Role) Result {
	company := EffectiveCompany(sel, sidebar, role)

	out := make([]model.Task, 0, len(vis.Tasks))
	for _, t := range vis.Tasks {
		if sel.Status != nil && t.Status != *sel.Status {
			continue
		}
		if sel.Priority != nil && t.Priority != *sel.Priority {
			continue
		}
		if company != nil && t.CompanyID != *company {
			continue
		}
		out = append(out, t)
	}

	return Result{Tasks: out, Counts: CountByStatus(out)}
}
