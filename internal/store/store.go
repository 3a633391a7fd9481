package store

import (
	"context"
	"errors"

	"github.com/nhle/company-tasks/internal/model"
)

// Sentinel errors returned (wrapped) by Store implementations.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid input")
)

// Table names passed to a Notifier. Subscribers use them as topics.
const (
	TableCompanies   = "companies"
	TableProfiles    = "profiles"
	TableTasks       = "tasks"
	TableComments    = "task_comments"
	TableAttachments = "task_attachments"
)

// Notifier receives a content-free event after every successful write.
type Notifier interface {
	Notify(table string)
}

// TaskFilter narrows task queries. The zero value lists every
// non-archived task.
type TaskFilter struct {
	Archived  bool
	CompanyID *string
}

// Store defines the persistence interface for companies, profiles, tasks,
// and the comments and attachments hanging off a task.
type Store interface {
	// === Companies ===

	CreateCompany(ctx context.Context, company model.Company) (*model.Company, error)
	UpdateCompany(ctx context.Context, company model.Company) error
	SetCompanyActive(ctx context.Context, id string, active bool) error
	DeleteCompany(ctx context.Context, id string) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context, activeOnly bool) ([]model.Company, error)

	// === Profiles ===

	CreateProfile(ctx context.Context, profile model.Profile) (*model.Profile, error)
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status model.Status) error
	UpdateTaskPriority(ctx context.Context, id string, priority model.Priority) error
	ArchiveTask(ctx context.Context, id string) error
	RestoreTask(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error

	// === Comments ===

	AddComment(ctx context.Context, comment model.Comment) (*model.Comment, error)
	ListComments(ctx context.Context, taskID string) ([]model.Comment, error)

	// === Attachments ===

	AddAttachment(ctx context.Context, attachment model.Attachment) (*model.Attachment, error)
	ListAttachments(ctx context.Context, taskID string) ([]model.Attachment, error)
}
