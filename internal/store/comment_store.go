package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/company-tasks/internal/model"
)

const commentSelect = `
	SELECT tc.id, tc.task_id, tc.user_id, COALESCE(p.name, '') AS author_name,
		tc.body, tc.created_at
	FROM task_comments tc
	LEFT JOIN profiles p ON p.user_id = tc.user_id`

// AddComment appends a comment to a task. The body is trimmed and must not
// be empty.
func (s *SQLiteStore) AddComment(ctx context.Context, comment model.Comment) (*model.Comment, error) {
	comment.Body = strings.TrimSpace(comment.Body)
	if comment.Body == "" {
		return nil, fmt.Errorf("comment must not be empty: %w", ErrInvalid)
	}
	if _, err := s.GetTask(ctx, comment.TaskID); err != nil {
		return nil, fmt.Errorf("comment task: %w", err)
	}

	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	comment.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_comments (id, task_id, user_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		comment.ID, comment.TaskID, comment.UserID, comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.notify(TableComments, TableTasks)

	var stored model.Comment
	if err := s.db.GetContext(ctx, &stored, commentSelect+" WHERE tc.id = ?", comment.ID); err != nil {
		return nil, lookupErr(err, "comment", comment.ID)
	}
	return &stored, nil
}

// ListComments returns a task's comments, oldest first, with author names.
func (s *SQLiteStore) ListComments(ctx context.Context, taskID string) ([]model.Comment, error) {
	comments := []model.Comment{}
	err := s.db.SelectContext(ctx, &comments,
		commentSelect+" WHERE tc.task_id = ? ORDER BY tc.created_at ASC, tc.rowid ASC", taskID)
	if err != nil {
		return nil, fmt.Errorf("querying comments for task %s: %w", taskID, err)
	}
	return comments, nil
}
