package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/store"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	CompanyID   string `json:"company_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type priorityRequest struct {
	Priority string `json:"priority"`
}

type commentRequest struct {
	Body string `json:"body"`
}

type attachmentRequest struct {
	Filename    string `json:"filename"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

type taskDetail struct {
	Task              *model.Task        `json:"task"`
	Comments          []model.Comment    `json:"comments"`
	Attachments       []model.Attachment `json:"attachments"`
	CanEdit           bool               `json:"can_edit"`
	CanChangePriority bool               `json:"can_change_priority"`
}

// parseDueDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid due_date %q", raw)
}

// visibleTask loads a task the caller may see. Tasks of other companies
// are reported as missing.
func (h *handlers) visibleTask(c echo.Context) (*model.Task, error) {
	id := c.Param("id")
	task, err := h.store.GetTask(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if !filter.CanSeeTask(identity(c), *task) {
		return nil, fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	return task, nil
}

// editableTask loads a task the caller may modify.
func (h *handlers) editableTask(c echo.Context) (*model.Task, error) {
	task, err := h.visibleTask(c)
	if err != nil {
		return nil, err
	}
	if !filter.CanEditTask(identity(c), *task) {
		return nil, fmt.Errorf("task %s: %w", task.ID, errForbidden)
	}
	return task, nil
}

func (h *handlers) taskDetail(c echo.Context) error {
	ctx := c.Request().Context()
	task, err := h.visibleTask(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	comments, err := h.store.ListComments(ctx, task.ID)
	if err != nil {
		return fail(c, h.logger, err)
	}
	attachments, err := h.store.ListAttachments(ctx, task.ID)
	if err != nil {
		return fail(c, h.logger, err)
	}

	id := identity(c)
	return c.JSON(http.StatusOK, taskDetail{
		Task:              task,
		Comments:          comments,
		Attachments:       attachments,
		CanEdit:           filter.CanEditTask(id, *task),
		CanChangePriority: filter.CanChangePriority(id),
	})
}

func (h *handlers) createTask(c echo.Context) error {
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, badRequest(err))
	}

	id := identity(c)
	companyID, err := filter.TaskCompanyFor(id, req.CompanyID)
	if err != nil {
		return fail(c, h.logger, err)
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return fail(c, h.logger, badRequest(err))
	}

	task, err := h.store.CreateTask(c.Request().Context(), model.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		DueDate:     due,
		CompanyID:   companyID,
		CreatedBy:   id.UserID,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}

	h.logger.WithField("task", task.ID).WithField("company", companyID).Info("task created")
	return c.JSON(http.StatusCreated, task)
}

func (h *handlers) updateStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, badRequest(err))
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		return fail(c, h.logger, badRequest(err))
	}

	task, err := h.editableTask(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if err := h.store.UpdateTaskStatus(c.Request().Context(), task.ID, status); err != nil {
		return fail(c, h.logger, err)
	}
	return h.respondTask(c, task.ID)
}

func (h *handlers) updatePriority(c echo.Context) error {
	var req priorityRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, badRequest(err))
	}
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return fail(c, h.logger, badRequest(err))
	}

	task, err := h.visibleTask(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if err := h.store.UpdateTaskPriority(c.Request().Context(), task.ID, priority); err != nil {
		return fail(c, h.logger, err)
	}
	return h.respondTask(c, task.ID)
}

func (h *handlers) archiveTask(c echo.Context) error {
	task, err := h.editableTask(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if err := h.store.ArchiveTask(c.Request().Context(), task.ID); err != nil {
		return fail(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) restoreTask(c echo.Context) error {
	task, err := h.editableTask(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if err := h.store.RestoreTask(c.Request().Context(), task.ID); err != nil {
		return fail(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) deleteTask(c echo.Context) error {
	if err := h.store.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) addComment(c echo.Context) error {
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, badRequest(err))
	}
	task, err := h.editableTask(c)
	if err != nil {
		return fail(c, h.logger, err)
	}

	comment, err := h.store.AddComment(c.Request().Context(), model.Comment{
		TaskID: task.ID,
		UserID: identity(c).UserID,
		Body:   req.Body,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// addAttachment records attachment metadata. The file itself is uploaded
// to object storage by the client under the returned file_path.
func (h *handlers) addAttachment(c echo.Context) error {
	var req attachmentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, badRequest(err))
	}
	if req.FileSize > model.MaxAttachmentSize {
		return fail(c, h.logger, badRequest(errors.New("file exceeds 10 MiB")))
	}
	task, err := h.editableTask(c)
	if err != nil {
		return fail(c, h.logger, err)
	}

	attachment, err := h.store.AddAttachment(c.Request().Context(), model.Attachment{
		TaskID:      task.ID,
		UserID:      identity(c).UserID,
		Filename:    req.Filename,
		FileSize:    req.FileSize,
		ContentType: req.ContentType,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, attachment)
}

func (h *handlers) respondTask(c echo.Context, id string) error {
	task, err := h.store.GetTask(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, task)
}
