package store_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/store"
	"github.com/nhle/company-tasks/tests/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	tables []string
}

func (r *recordingNotifier) Notify(table string) {
	r.mu.Lock()
	r.tables = append(r.tables, table)
	r.mu.Unlock()
}

func (r *recordingNotifier) saw(table string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t == table {
			return true
		}
	}
	return false
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	r.tables = nil
	r.mu.Unlock()
}

func newStore(t *testing.T) (*store.SQLiteStore, *recordingNotifier) {
	t.Helper()
	s := testutil.NewTestStore(t)
	n := &recordingNotifier{}
	s.SetNotifier(n)
	return s, n
}

func mustCompany(t *testing.T, s store.Store, name string) *model.Company {
	t.Helper()
	c, err := s.CreateCompany(context.Background(), model.Company{Name: name})
	if err != nil {
		t.Fatalf("CreateCompany(%s): %v", name, err)
	}
	return c
}

func mustTask(t *testing.T, s store.Store, title, companyID string) *model.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), model.Task{Title: title, CompanyID: companyID, CreatedBy: "u1"})
	if err != nil {
		t.Fatalf("CreateTask(%s): %v", title, err)
	}
	return task
}

func TestCompanyLifecycle(t *testing.T) {
	ctx := context.Background()
	s, n := newStore(t)

	acme := mustCompany(t, s, "Acme")
	mustCompany(t, s, "Beta")
	if !n.saw(store.TableCompanies) {
		t.Fatal("expected companies notification")
	}

	if _, err := s.CreateCompany(ctx, model.Company{Name: "Acme"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate name err = %v, want ErrConflict", err)
	}
	if _, err := s.CreateCompany(ctx, model.Company{Name: "  "}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("blank name err = %v, want ErrInvalid", err)
	}

	if err := s.UpdateCompany(ctx, model.Company{ID: acme.ID, Name: "Acme Corp"}); err != nil {
		t.Fatalf("UpdateCompany: %v", err)
	}
	if err := s.SetCompanyActive(ctx, acme.ID, false); err != nil {
		t.Fatalf("SetCompanyActive: %v", err)
	}

	active, err := s.ListCompanies(ctx, true)
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Beta" {
		t.Fatalf("active companies = %+v", active)
	}

	all, err := s.ListCompanies(ctx, false)
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Acme Corp" || all[0].Active {
		t.Fatalf("all companies = %+v", all)
	}

	if err := s.SetCompanyActive(ctx, "missing", true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing company err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetCompany(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetCompany missing err = %v", err)
	}
}

func TestDeleteCompanyRefusedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	acme := mustCompany(t, s, "Acme")
	task := mustTask(t, s, "Printer jammed", acme.ID)

	if err := s.DeleteCompany(ctx, acme.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("DeleteCompany err = %v, want ErrConflict", err)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := s.DeleteCompany(ctx, acme.ID); err != nil {
		t.Fatalf("DeleteCompany after clearing tasks: %v", err)
	}
	if err := s.DeleteCompany(ctx, acme.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestCreateTaskDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	s, n := newStore(t)
	acme := mustCompany(t, s, "Acme")
	n.reset()

	task := mustTask(t, s, "  VPN down  ", acme.ID)
	if task.Title != "VPN down" {
		t.Fatalf("title not trimmed: %q", task.Title)
	}
	if task.Status != model.StatusOpen || task.Priority != model.PriorityMedium {
		t.Fatalf("defaults = %s/%s", task.Status, task.Priority)
	}
	if task.CompanyName != "Acme" {
		t.Fatalf("company name = %q", task.CompanyName)
	}
	if !n.saw(store.TableTasks) {
		t.Fatal("expected tasks notification")
	}

	cases := []model.Task{
		{Title: "", CompanyID: acme.ID},
		{Title: "x", CompanyID: acme.ID, Status: "done"},
		{Title: "x", CompanyID: acme.ID, Priority: "urgent"},
		{Title: "x"},
	}
	for _, c := range cases {
		if _, err := s.CreateTask(ctx, c); !errors.Is(err, store.ErrInvalid) {
			t.Fatalf("CreateTask(%+v) err = %v, want ErrInvalid", c, err)
		}
	}

	if _, err := s.CreateTask(ctx, model.Task{Title: "x", CompanyID: "ghost"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown company err = %v, want ErrNotFound", err)
	}

	if err := s.SetCompanyActive(ctx, acme.ID, false); err != nil {
		t.Fatalf("SetCompanyActive: %v", err)
	}
	if _, err := s.CreateTask(ctx, model.Task{Title: "x", CompanyID: acme.ID}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("inactive company err = %v, want ErrInvalid", err)
	}
}

func TestListTasksFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	acme := mustCompany(t, s, "Acme")
	beta := mustCompany(t, s, "Beta")

	first := mustTask(t, s, "first", acme.ID)
	second := mustTask(t, s, "second", beta.ID)
	third := mustTask(t, s, "third", acme.ID)

	if err := s.ArchiveTask(ctx, second.ID); err != nil {
		t.Fatalf("ArchiveTask: %v", err)
	}

	open, err := s.ListTasks(ctx, store.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(open) != 2 || open[0].ID != third.ID || open[1].ID != first.ID {
		t.Fatalf("non-archived tasks = %v", ids(open))
	}

	archived, err := s.ListTasks(ctx, store.TaskFilter{Archived: true})
	if err != nil {
		t.Fatalf("ListTasks archived: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != second.ID || !archived[0].Archived || archived[0].ArchivedAt == nil {
		t.Fatalf("archived tasks = %+v", archived)
	}

	scoped, err := s.ListTasks(ctx, store.TaskFilter{CompanyID: &beta.ID})
	if err != nil {
		t.Fatalf("ListTasks scoped: %v", err)
	}
	if len(scoped) != 0 {
		t.Fatalf("beta has no live tasks, got %v", ids(scoped))
	}

	if err := s.RestoreTask(ctx, second.ID); err != nil {
		t.Fatalf("RestoreTask: %v", err)
	}
	restored, err := s.GetTask(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if restored.Archived || restored.ArchivedAt != nil {
		t.Fatalf("restored task still archived: %+v", restored)
	}
}

func TestUpdateTaskStatusAndPriority(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	acme := mustCompany(t, s, "Acme")
	task := mustTask(t, s, "Laptop", acme.ID)

	if err := s.UpdateTaskStatus(ctx, task.ID, model.StatusProgress); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if err := s.UpdateTaskPriority(ctx, task.ID, model.PriorityHigh); err != nil {
		t.Fatalf("UpdateTaskPriority: %v", err)
	}
	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != model.StatusProgress || got.Priority != model.PriorityHigh {
		t.Fatalf("task = %s/%s", got.Status, got.Priority)
	}

	if err := s.UpdateTaskStatus(ctx, task.ID, "bogus"); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("bogus status err = %v", err)
	}
	if err := s.UpdateTaskStatus(ctx, "missing", model.StatusOpen); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing task err = %v", err)
	}
}

func TestCommentsAndAttachments(t *testing.T) {
	ctx := context.Background()
	s, n := newStore(t)
	acme := mustCompany(t, s, "Acme")
	task := mustTask(t, s, "Email bounce", acme.ID)

	author, err := s.CreateProfile(ctx, model.Profile{Name: "Dana", Role: model.RoleCompanyUser, CompanyID: &acme.ID})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	n.reset()

	if _, err := s.AddComment(ctx, model.Comment{TaskID: task.ID, UserID: author.UserID, Body: "   "}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("blank comment err = %v", err)
	}
	c, err := s.AddComment(ctx, model.Comment{TaskID: task.ID, UserID: author.UserID, Body: " first "})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c.Body != "first" || c.AuthorName != "Dana" {
		t.Fatalf("comment = %+v", c)
	}
	if _, err := s.AddComment(ctx, model.Comment{TaskID: task.ID, UserID: author.UserID, Body: "second"}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if !n.saw(store.TableComments) || !n.saw(store.TableTasks) {
		t.Fatal("comment writes must notify comments and tasks")
	}

	comments, err := s.ListComments(ctx, task.ID)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 2 || comments[0].Body != "first" || comments[1].Body != "second" {
		t.Fatalf("comments = %+v", comments)
	}

	if _, err := s.AddAttachment(ctx, model.Attachment{
		TaskID: task.ID, UserID: author.UserID, Filename: "huge.bin", FileSize: model.MaxAttachmentSize + 1,
	}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("oversized attachment err = %v", err)
	}
	a, err := s.AddAttachment(ctx, model.Attachment{
		TaskID: task.ID, UserID: author.UserID, Filename: "log.txt", FileSize: 512, ContentType: "text/plain",
	})
	if err != nil {
		t.Fatalf("AddAttachment: %v", err)
	}
	if !strings.HasPrefix(a.FilePath, task.ID+"/") || !strings.HasSuffix(a.FilePath, ".txt") {
		t.Fatalf("file path = %q", a.FilePath)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.CommentCount != 2 || got.AttachmentCount != 1 {
		t.Fatalf("counts = %d comments, %d attachments", got.CommentCount, got.AttachmentCount)
	}

	if _, err := s.AddComment(ctx, model.Comment{TaskID: "missing", Body: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("comment on missing task err = %v", err)
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	acme := mustCompany(t, s, "Acme")

	if _, err := s.CreateProfile(ctx, model.Profile{Name: "NoCo", Role: model.RoleCompanyUser}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("company user without company err = %v", err)
	}
	if _, err := s.CreateProfile(ctx, model.Profile{Name: "Odd", Role: "owner"}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("unknown role err = %v", err)
	}

	admin, err := s.CreateProfile(ctx, model.Profile{UserID: "auth0|admin", Name: "Root", Role: model.RoleAdmin, CompanyID: &acme.ID})
	if err != nil {
		t.Fatalf("CreateProfile admin: %v", err)
	}
	if admin.CompanyID != nil {
		t.Fatal("admin profile kept a company")
	}

	user, err := s.CreateProfile(ctx, model.Profile{Name: "Ann", Role: model.RoleCompanyUser, CompanyID: &acme.ID})
	if err != nil {
		t.Fatalf("CreateProfile user: %v", err)
	}

	got, err := s.GetProfile(ctx, user.UserID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	id := got.Identity()
	if id.Role != model.RoleCompanyUser || id.CompanyID != acme.ID {
		t.Fatalf("identity = %+v", id)
	}

	list, err := s.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Ann" {
		t.Fatalf("profiles = %+v", list)
	}

	if err := s.DeleteCompany(ctx, acme.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("company with users deleted: %v", err)
	}
	if err := s.DeleteProfile(ctx, user.UserID); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if _, err := s.GetProfile(ctx, user.UserID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted profile err = %v", err)
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
