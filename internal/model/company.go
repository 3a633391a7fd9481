package model

import "time"

// Company is a tenant whose users file tasks.
type Company struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// TaskCount is derived from the current task snapshot and never stored.
	TaskCount int `json:"task_count" db:"-"`
}
