package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

// Task status constants. No other values are valid.
const (
	StatusOpen      Status = "open"
	StatusProgress  Status = "progress"
	StatusCompleted Status = "completed"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusOpen, StatusProgress, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusProgress, StatusCompleted:
		return true
	}
	return false
}

// Label returns the human-readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusProgress:
		return "In progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// Next returns the status that follows s in the open → progress → completed cycle.
func (s Status) Next() Status {
	switch s {
	case StatusOpen:
		return StatusProgress
	case StatusProgress:
		return StatusCompleted
	default:
		return StatusOpen
	}
}

// ParseStatus converts raw input into a Status, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q", raw)
	}
	return s, nil
}

// Priority is the urgency of a task.
type Priority string

// Task priority constants. No other values are valid.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every valid priority from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Label returns the human-readable name of the priority.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	}
	return string(p)
}

// ParsePriority converts raw input into a Priority, rejecting unknown values.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q", raw)
	}
	return p, nil
}

// Task is a support ticket filed by or for a company.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" db:"id"`

	// Title is the one-line summary of the task.
	Title string `json:"title" db:"title"`

	// Description is the full body text.
	Description string `json:"description" db:"description"`

	// Status is the lifecycle state (use Status* constants).
	Status Status `json:"status" db:"status"`

	// Priority is the urgency (use Priority* constants).
	Priority Priority `json:"priority" db:"priority"`

	// DueDate is the optional deadline.
	DueDate *time.Time `json:"due_date,omitempty" db:"due_date"`

	// CompanyID references the owning Company.
	CompanyID string `json:"company_id" db:"company_id"`

	// CompanyName is populated by joins; empty when the company is unknown.
	CompanyName string `json:"company_name" db:"company_name"`

	// Archived excludes the task from the default view.
	Archived bool `json:"archived" db:"is_archived"`

	// ArchivedAt records when the task was archived.
	ArchivedAt *time.Time `json:"archived_at,omitempty" db:"archived_at"`

	// CreatedBy is the user ID of the identity that filed the task.
	CreatedBy string `json:"created_by" db:"created_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// CommentCount and AttachmentCount are denormalized by list queries.
	CommentCount    int `json:"comment_count" db:"comment_count"`
	AttachmentCount int `json:"attachment_count" db:"attachment_count"`
}

// IsOverdue reports whether the task has a past due date and is not completed.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}
