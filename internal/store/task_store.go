package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/company-tasks/internal/model"
)

// taskSelect joins the owning company's name and the denormalized
// comment and attachment counts onto every task row.
const taskSelect = `
	SELECT
		t.id, t.title, t.description, t.status, t.priority, t.due_date,
		t.company_id, COALESCE(c.name, '') AS company_name,
		t.is_archived, t.archived_at, t.created_by, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM task_comments tc WHERE tc.task_id = t.id) AS comment_count,
		(SELECT COUNT(*) FROM task_attachments ta WHERE ta.task_id = t.id) AS attachment_count
	FROM tasks t
	LEFT JOIN companies c ON c.id = t.company_id`

// CreateTask inserts a new task. Status defaults to open and priority to
// medium; the company must exist and be active.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return nil, fmt.Errorf("task title must not be empty: %w", ErrInvalid)
	}
	if task.Status == "" {
		task.Status = model.StatusOpen
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if !task.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q: %w", task.Status, ErrInvalid)
	}
	if !task.Priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q: %w", task.Priority, ErrInvalid)
	}
	if task.CompanyID == "" {
		return nil, fmt.Errorf("task company must not be empty: %w", ErrInvalid)
	}

	company, err := s.GetCompany(ctx, task.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("task company: %w", err)
	}
	if !company.Active {
		return nil, fmt.Errorf("company %s is inactive: %w", company.ID, ErrInvalid)
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, status, priority, due_date,
			company_id, is_archived, archived_at, created_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?, ?)`,
		task.ID, task.Title, task.Description, string(task.Status), string(task.Priority), task.DueDate,
		task.CompanyID, task.CreatedBy,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.notify(TableTasks)
	return s.GetTask(ctx, task.ID)
}

// GetTask retrieves a single task by ID, archived or not.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := s.db.GetContext(ctx, &task, taskSelect+" WHERE t.id = ?", id); err != nil {
		return nil, lookupErr(err, "task", id)
	}
	return &task, nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	conditions := []string{"t.is_archived = ?"}
	args := []interface{}{boolToInt(filter.Archived)}

	if filter.CompanyID != nil {
		conditions = append(conditions, "t.company_id = ?")
		args = append(args, *filter.CompanyID)
	}

	query := taskSelect +
		" WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY t.created_at DESC, t.rowid DESC"

	tasks := []model.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskStatus moves a task to a new lifecycle state.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q: %w", status, ErrInvalid)
	}
	return s.updateTask(ctx, id, "status = ?", string(status))
}

// UpdateTaskPriority changes a task's urgency.
func (s *SQLiteStore) UpdateTaskPriority(ctx context.Context, id string, priority model.Priority) error {
	if !priority.Valid() {
		return fmt.Errorf("invalid priority %q: %w", priority, ErrInvalid)
	}
	return s.updateTask(ctx, id, "priority = ?", string(priority))
}

// ArchiveTask hides a task from the default view and records when.
func (s *SQLiteStore) ArchiveTask(ctx context.Context, id string) error {
	return s.updateTask(ctx, id, "is_archived = 1, archived_at = ?", time.Now().UTC())
}

// RestoreTask returns an archived task to the default view.
func (s *SQLiteStore) RestoreTask(ctx context.Context, id string) error {
	return s.updateTask(ctx, id, "is_archived = 0, archived_at = NULL")
}

// DeleteTask removes a task. Cascades to its comments and attachments.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if err := rowsAffected(result, "task", id); err != nil {
		return err
	}

	s.notify(TableTasks, TableComments, TableAttachments)
	return nil
}

// updateTask applies set (a SET fragment) to one task and bumps updated_at.
func (s *SQLiteStore) updateTask(ctx context.Context, id, set string, args ...interface{}) error {
	args = append(args, time.Now().UTC(), id)
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+set+", updated_at = ? WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	if err := rowsAffected(result, "task", id); err != nil {
		return err
	}

	s.notify(TableTasks)
	return nil
}
