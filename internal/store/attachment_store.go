package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/company-tasks/internal/model"
)

const attachmentSelect = `
	SELECT ta.id, ta.task_id, ta.user_id, COALESCE(p.name, '') AS author_name,
		ta.filename, ta.file_path, ta.file_size, ta.content_type, ta.created_at
	FROM task_attachments ta
	LEFT JOIN profiles p ON p.user_id = ta.user_id`

// AddAttachment records the metadata of an uploaded file. FilePath is
// derived from the task and upload time when empty.
func (s *SQLiteStore) AddAttachment(ctx context.Context, attachment model.Attachment) (*model.Attachment, error) {
	attachment.Filename = strings.TrimSpace(attachment.Filename)
	if attachment.Filename == "" {
		return nil, fmt.Errorf("attachment filename must not be empty: %w", ErrInvalid)
	}
	if attachment.FileSize < 0 || attachment.FileSize > model.MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds %d bytes: %w",
			attachment.FileSize, model.MaxAttachmentSize, ErrInvalid)
	}
	if _, err := s.GetTask(ctx, attachment.TaskID); err != nil {
		return nil, fmt.Errorf("attachment task: %w", err)
	}

	if attachment.ID == "" {
		attachment.ID = uuid.New().String()
	}
	attachment.CreatedAt = time.Now().UTC()
	if attachment.FilePath == "" {
		attachment.FilePath = model.AttachmentPath(attachment.TaskID, attachment.Filename, attachment.CreatedAt)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_attachments (
			id, task_id, user_id, filename, file_path, file_size, content_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attachment.ID, attachment.TaskID, attachment.UserID, attachment.Filename,
		attachment.FilePath, attachment.FileSize, attachment.ContentType, attachment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating attachment: %w", err)
	}

	s.notify(TableAttachments, TableTasks)

	var stored model.Attachment
	if err := s.db.GetContext(ctx, &stored, attachmentSelect+" WHERE ta.id = ?", attachment.ID); err != nil {
		return nil, lookupErr(err, "attachment", attachment.ID)
	}
	return &stored, nil
}

// ListAttachments returns a task's attachments, oldest first.
func (s *SQLiteStore) ListAttachments(ctx context.Context, taskID string) ([]model.Attachment, error) {
	attachments := []model.Attachment{}
	err := s.db.SelectContext(ctx, &attachments,
		attachmentSelect+" WHERE ta.task_id = ? ORDER BY ta.created_at ASC, ta.rowid ASC", taskID)
	if err != nil {
		return nil, fmt.Errorf("querying attachments for task %s: %w", taskID, err)
	}
	return attachments, nil
}
