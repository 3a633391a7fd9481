package model

import "time"

// Comment is a note left on a task.
type Comment struct {
	ID         string    `json:"id" db:"id"`
	TaskID     string    `json:"task_id" db:"task_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	AuthorName string    `json:"author_name,omitempty" db:"author_name"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
