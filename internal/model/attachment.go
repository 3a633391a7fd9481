package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MaxAttachmentSize is the largest file accepted as an attachment (10 MiB).
const MaxAttachmentSize int64 = 10 * 1024 * 1024

// Attachment is the metadata of a file stored for a task. The bytes live in
// external object storage under FilePath.
type Attachment struct {
	ID          string    `json:"id" db:"id"`
	TaskID      string    `json:"task_id" db:"task_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	AuthorName  string    `json:"author_name,omitempty" db:"author_name"`
	Filename    string    `json:"filename" db:"filename"`
	FilePath    string    `json:"file_path" db:"file_path"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	ContentType string    `json:"content_type" db:"content_type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AttachmentPath builds the object-storage key for an upload:
// <task id>/<unix millis>.<original extension>.
func AttachmentPath(taskID, filename string, now time.Time) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return fmt.Sprintf("%s/%d", taskID, now.UnixMilli())
	}
	return fmt.Sprintf("%s/%d.%s", taskID, now.UnixMilli(), ext)
}
