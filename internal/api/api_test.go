package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/notify"
	"github.com/nhle/company-tasks/internal/session"
	"github.com/nhle/company-tasks/internal/store"
	"github.com/nhle/company-tasks/tests/testutil"
)

// fakeResolver treats the bearer token as a key into a fixed identity table.
type fakeResolver map[string]*model.Identity

func (f fakeResolver) CurrentIdentity(ctx context.Context, h string) (*model.Identity, error) {
	id, ok := f[strings.TrimPrefix(h, "Bearer ")]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", filter.ErrUnauthorized)
	}
	return id, nil
}

type fixture struct {
	e     *echo.Echo
	store *store.SQLiteStore
	hub   *notify.Hub
	acme  *model.Company
	beta  *model.Company
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewTestStore(t)
	hub := notify.NewHub()
	st.SetNotifier(hub)

	ctx := context.Background()
	acme, err := st.CreateCompany(ctx, model.Company{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	beta, err := st.CreateCompany(ctx, model.Company{Name: "Beta"})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}

	resolver := fakeResolver{
		"admin": {UserID: "admin", Role: model.RoleAdmin},
		"acme":  {UserID: "acme-user", Role: model.RoleCompanyUser, CompanyID: acme.ID},
		"beta":  {UserID: "beta-user", Role: model.RoleCompanyUser, CompanyID: beta.ID},
	}

	e := echo.New()
	Register(e, st, resolver, hub, quietLogger())
	return &fixture{e: e, store: st, hub: hub, acme: acme, beta: beta}
}

func (f *fixture) do(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) task(t *testing.T, title, companyID string, status model.Status) *model.Task {
	t.Helper()
	task, err := f.store.CreateTask(context.Background(), model.Task{Title: title, CompanyID: companyID, Status: status})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func taskIDs(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, "", http.MethodGet, "/healthz", nil), http.StatusOK)
	expectStatus(t, f.do(t, "", http.MethodGet, "/api/board", nil), http.StatusUnauthorized)
	expectStatus(t, f.do(t, "nobody", http.MethodGet, "/api/board", nil), http.StatusUnauthorized)
}

func TestBoardScenarios(t *testing.T) {
	f := newFixture(t)
	t1 := f.task(t, "T1", f.acme.ID, model.StatusOpen)
	t2 := f.task(t, "T2", f.beta.ID, model.StatusCompleted)
	t3 := f.task(t, "T3", f.acme.ID, model.StatusOpen)

	rec := f.do(t, "admin", http.MethodGet, "/api/board?status=open", nil)
	expectStatus(t, rec, http.StatusOK)
	snap := decode[session.Snapshot](t, rec)
	if got := taskIDs(snap.Tasks); len(got) != 2 || got[0] != t3.ID || got[1] != t1.ID {
		t.Fatalf("admin open = %v", got)
	}
	if snap.Counts.Open != 2 || snap.Counts.Total != 2 {
		t.Fatalf("counts = %+v", snap.Counts)
	}

	rec = f.do(t, "beta", http.MethodGet, "/api/board?status=open", nil)
	expectStatus(t, rec, http.StatusOK)
	if snap := decode[session.Snapshot](t, rec); len(snap.Tasks) != 0 {
		t.Fatalf("beta open = %v", taskIDs(snap.Tasks))
	}

	rec = f.do(t, "admin", http.MethodGet, "/api/board?sidebar="+f.acme.ID+"&company="+f.beta.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	snap = decode[session.Snapshot](t, rec)
	if got := taskIDs(snap.Tasks); len(got) != 1 || got[0] != t2.ID {
		t.Fatalf("facet over sidebar = %v", got)
	}
	if snap.SidebarName != "Acme" {
		t.Fatalf("sidebar name = %q", snap.SidebarName)
	}

	rec = f.do(t, "acme", http.MethodGet, "/api/board?sidebar="+f.beta.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	snap = decode[session.Snapshot](t, rec)
	if got := taskIDs(snap.Tasks); len(got) != 2 {
		t.Fatalf("acme user board = %v", got)
	}
	if len(snap.Companies) != 1 || snap.Companies[0].TaskCount != 2 {
		t.Fatalf("acme user companies = %+v", snap.Companies)
	}

	expectStatus(t, f.do(t, "admin", http.MethodGet, "/api/board?status=done", nil), http.StatusBadRequest)
}

func TestArchiveRestoreAndArchivedListing(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "acme task", f.acme.ID, "")
	b := f.task(t, "beta task", f.beta.ID, "")

	expectStatus(t, f.do(t, "acme", http.MethodPost, "/api/tasks/"+a.ID+"/archive", nil), http.StatusNoContent)
	expectStatus(t, f.do(t, "acme", http.MethodPost, "/api/tasks/"+b.ID+"/archive", nil), http.StatusNotFound)
	expectStatus(t, f.do(t, "admin", http.MethodPost, "/api/tasks/"+b.ID+"/archive", nil), http.StatusNoContent)

	rec := f.do(t, "acme", http.MethodGet, "/api/archived", nil)
	expectStatus(t, rec, http.StatusOK)
	snap := decode[session.Snapshot](t, rec)
	if got := taskIDs(snap.Tasks); len(got) != 1 || got[0] != a.ID || snap.Mode != session.ModeArchived {
		t.Fatalf("acme archived = %v (%s)", got, snap.Mode)
	}

	rec = f.do(t, "admin", http.MethodGet, "/api/archived?company="+f.beta.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := taskIDs(decode[session.Snapshot](t, rec).Tasks); len(got) != 1 || got[0] != b.ID {
		t.Fatalf("admin archived beta = %v", got)
	}

	expectStatus(t, f.do(t, "acme", http.MethodPost, "/api/tasks/"+a.ID+"/restore", nil), http.StatusNoContent)
	rec = f.do(t, "acme", http.MethodGet, "/api/board", nil)
	if got := taskIDs(decode[session.Snapshot](t, rec).Tasks); len(got) != 1 || got[0] != a.ID {
		t.Fatalf("restored board = %v", got)
	}
}

func TestCreateTaskPinsCompanyUserToOwnCompany(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "acme", http.MethodPost, "/api/tasks", map[string]string{
		"title": "Broken VPN", "company_id": f.beta.ID, "priority": "high", "due_date": "2026-11-01",
	})
	expectStatus(t, rec, http.StatusCreated)
	task := decode[model.Task](t, rec)
	if task.CompanyID != f.acme.ID || task.CreatedBy != "acme-user" {
		t.Fatalf("task = %+v", task)
	}
	if task.Priority != model.PriorityHigh || task.Status != model.StatusOpen {
		t.Fatalf("task enums = %s/%s", task.Priority, task.Status)
	}
	if task.DueDate == nil || task.DueDate.Format("2006-01-02") != "2026-11-01" {
		t.Fatalf("due date = %v", task.DueDate)
	}

	expectStatus(t, f.do(t, "admin", http.MethodPost, "/api/tasks", map[string]string{"title": "x"}), http.StatusBadRequest)
	expectStatus(t, f.do(t, "admin", http.MethodPost, "/api/tasks", map[string]string{"title": "", "company_id": f.acme.ID}), http.StatusBadRequest)
	expectStatus(t, f.do(t, "admin", http.MethodPost, "/api/tasks", map[string]string{"title": "x", "company_id": f.acme.ID, "due_date": "soon"}), http.StatusBadRequest)

	rec = f.do(t, "admin", http.MethodPost, "/api/tasks", map[string]string{"title": "for beta", "company_id": f.beta.ID})
	expectStatus(t, rec, http.StatusCreated)
	if got := decode[model.Task](t, rec); got.CompanyID != f.beta.ID {
		t.Fatalf("admin chose %s, got %s", f.beta.ID, got.CompanyID)
	}
}

func TestStatusAndPriorityPermissions(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "printer", f.acme.ID, "")

	rec := f.do(t, "acme", http.MethodPatch, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "progress"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[model.Task](t, rec); got.Status != model.StatusProgress {
		t.Fatalf("status = %s", got.Status)
	}

	expectStatus(t, f.do(t, "beta", http.MethodPatch, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "completed"}), http.StatusNotFound)
	expectStatus(t, f.do(t, "acme", http.MethodPatch, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "done"}), http.StatusBadRequest)

	expectStatus(t, f.do(t, "acme", http.MethodPatch, "/api/tasks/"+task.ID+"/priority", map[string]string{"priority": "high"}), http.StatusForbidden)
	rec = f.do(t, "admin", http.MethodPatch, "/api/tasks/"+task.ID+"/priority", map[string]string{"priority": "high"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[model.Task](t, rec); got.Priority != model.PriorityHigh {
		t.Fatalf("priority = %s", got.Priority)
	}
	expectStatus(t, f.do(t, "admin", http.MethodPatch, "/api/tasks/missing/priority", map[string]string{"priority": "high"}), http.StatusNotFound)
}

func TestTaskDetailWithCommentsAndAttachments(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "mail", f.acme.ID, "")

	expectStatus(t, f.do(t, "acme", http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{"body": "  "}), http.StatusBadRequest)
	expectStatus(t, f.do(t, "acme", http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{"body": "looking"}), http.StatusCreated)
	expectStatus(t, f.do(t, "beta", http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{"body": "sneaky"}), http.StatusNotFound)

	expectStatus(t, f.do(t, "acme", http.MethodPost, "/api/tasks/"+task.ID+"/attachments", map[string]any{
		"filename": "big.iso", "file_size": model.MaxAttachmentSize + 1,
	}), http.StatusBadRequest)
	expectStatus(t, f.do(t, "acme", http.MethodPost, "/api/tasks/"+task.ID+"/attachments", map[string]any{
		"filename": "trace.log", "file_size": 2048, "content_type": "text/plain",
	}), http.StatusCreated)

	rec := f.do(t, "acme", http.MethodGet, "/api/tasks/"+task.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	detail := decode[taskDetail](t, rec)
	if len(detail.Comments) != 1 || detail.Comments[0].Body != "looking" {
		t.Fatalf("comments = %+v", detail.Comments)
	}
	if len(detail.Attachments) != 1 || detail.Attachments[0].Filename != "trace.log" {
		t.Fatalf("attachments = %+v", detail.Attachments)
	}
	if !detail.CanEdit || detail.CanChangePriority {
		t.Fatalf("permissions = edit %t priority %t", detail.CanEdit, detail.CanChangePriority)
	}
	if detail.Task.CommentCount != 1 || detail.Task.AttachmentCount != 1 {
		t.Fatalf("counts = %d/%d", detail.Task.CommentCount, detail.Task.AttachmentCount)
	}

	expectStatus(t, f.do(t, "beta", http.MethodGet, "/api/tasks/"+task.ID, nil), http.StatusNotFound)
}

func TestSettingsAreAdminOnly(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(t, "acme", http.MethodPost, "/api/companies", map[string]string{"name": "Gamma"}), http.StatusForbidden)
	expectStatus(t, f.do(t, "acme", http.MethodGet, "/api/profiles", nil), http.StatusForbidden)

	rec := f.do(t, "acme", http.MethodGet, "/api/companies", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]model.Company](t, rec); len(got) != 1 || got[0].ID != f.acme.ID {
		t.Fatalf("acme sees companies %+v", got)
	}

	rec = f.do(t, "admin", http.MethodPost, "/api/companies", map[string]string{"name": "Gamma"})
	expectStatus(t, rec, http.StatusCreated)
	gamma := decode[model.Company](t, rec)
	expectStatus(t, f.do(t, "admin", http.MethodPost, "/api/companies", map[string]string{"name": "Gamma"}), http.StatusConflict)

	rec = f.do(t, "admin", http.MethodPatch, "/api/companies/"+gamma.ID, map[string]any{"name": "Gamma Ltd", "active": false})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[model.Company](t, rec); got.Name != "Gamma Ltd" || got.Active {
		t.Fatalf("updated company = %+v", got)
	}

	rec = f.do(t, "admin", http.MethodGet, "/api/companies", nil)
	if got := decode[[]model.Company](t, rec); len(got) != 2 {
		t.Fatalf("active companies = %+v", got)
	}
	rec = f.do(t, "admin", http.MethodGet, "/api/companies?all=true", nil)
	if got := decode[[]model.Company](t, rec); len(got) != 3 {
		t.Fatalf("all companies = %+v", got)
	}

	f.task(t, "keeps acme", f.acme.ID, "")
	expectStatus(t, f.do(t, "admin", http.MethodDelete, "/api/companies/"+f.acme.ID, nil), http.StatusConflict)
	expectStatus(t, f.do(t, "admin", http.MethodDelete, "/api/companies/"+gamma.ID, nil), http.StatusNoContent)

	rec = f.do(t, "admin", http.MethodPost, "/api/profiles", map[string]any{
		"user_id": "ann-1", "name": "Ann", "role": "company_user", "company_id": f.beta.ID,
	})
	expectStatus(t, rec, http.StatusCreated)
	expectStatus(t, f.do(t, "admin", http.MethodPost, "/api/profiles", map[string]any{"name": "Bob", "role": "company_user"}), http.StatusBadRequest)

	rec = f.do(t, "admin", http.MethodGet, "/api/profiles", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]model.Profile](t, rec); len(got) != 1 {
		t.Fatalf("profiles = %+v", got)
	}
	expectStatus(t, f.do(t, "admin", http.MethodDelete, "/api/profiles/ann-1", nil), http.StatusNoContent)
	expectStatus(t, f.do(t, "admin", http.MethodDelete, "/api/profiles/ann-1", nil), http.StatusNotFound)
}

// streamRecorder is a ResponseWriter safe to read while the handler writes.
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	buf    bytes.Buffer
	code   int
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: http.Header{}}
}

func (r *streamRecorder) Header() http.Header { return r.header }

func (r *streamRecorder) WriteHeader(code int) {
	r.mu.Lock()
	r.code = code
	r.mu.Unlock()
}

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *streamRecorder) Flush() {}

func (r *streamRecorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, chunk := range strings.Split(r.buf.String(), "\n\n") {
		if strings.HasPrefix(chunk, "data: ") {
			out = append(out, strings.TrimPrefix(chunk, "data: "))
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestStreamPushesBoardOnChange(t *testing.T) {
	f := newFixture(t)
	f.task(t, "first", f.acme.ID, "")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/stream?token=acme", nil).WithContext(ctx)
	rec := newStreamRecorder()

	done := make(chan struct{})
	go func() {
		f.e.ServeHTTP(rec, req)
		close(done)
	}()

	waitFor(t, func() bool { return len(rec.events()) == 1 })
	if rec.header.Get(echo.HeaderContentType) != "text/event-stream" {
		t.Fatalf("content type = %q", rec.header.Get(echo.HeaderContentType))
	}

	// A new task for the caller's company is pushed without reconnecting.
	f.task(t, "second", f.acme.ID, "")
	waitFor(t, func() bool {
		evs := rec.events()
		if len(evs) < 2 {
			return false
		}
		var snap session.Snapshot
		if err := json.Unmarshal([]byte(evs[len(evs)-1]), &snap); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return len(snap.Tasks) == 2
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after client disconnect")
	}
	if f.hub.SubscriberCount() != 0 {
		t.Fatalf("subscription leaked: %d", f.hub.SubscriberCount())
	}
}
