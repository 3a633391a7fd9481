package board

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/keys"
	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/notify"
	"github.com/nhle/company-tasks/internal/session"
	"github.com/nhle/company-tasks/internal/theme"
	"github.com/nhle/company-tasks/internal/ui"
	"github.com/nhle/company-tasks/internal/ui/detail"
	helpview "github.com/nhle/company-tasks/internal/ui/help"
	"github.com/nhle/company-tasks/internal/ui/taskform"
	"github.com/nhle/company-tasks/internal/ui/tasklist"
)

const actionTimeout = 10 * time.Second

// Backend is the slice of the entity store the board writes through and
// loads task details from. Board listings always come from the session.
type Backend interface {
	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status model.Status) error
	UpdateTaskPriority(ctx context.Context, id string, priority model.Priority) error
	RestoreTask(ctx context.Context, id string) error
	AddComment(ctx context.Context, comment model.Comment) (*model.Comment, error)
	ListComments(ctx context.Context, taskID string) ([]model.Comment, error)
	ListAttachments(ctx context.Context, taskID string) ([]model.Attachment, error)
}

// ViewState represents the active view.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewHelp
	ViewForm
	ViewDetail
)

// snapshotMsg is sent when a refresh finishes.
type snapshotMsg struct {
	snap *session.Snapshot
	err  error
}

// changeMsg is sent when the change feed reports a write.
type changeMsg struct{}

// actionDoneMsg is sent when a write issued from the board completes.
type actionDoneMsg struct {
	note string
	err  error
}

// Model is the root Bubble Tea model of the terminal board.
type Model struct {
	sess  *session.Session
	store Backend
	sub   *notify.Subscription
	keys  *keys.KeyMap

	currentView ViewState
	layout      ui.Layout
	tasks       tasklist.Model
	helpView    helpview.Model
	form        taskform.Model
	detail      detail.Model

	snap    *session.Snapshot
	sideIdx int
	notice  string
	err     error
	ready   bool
}

// New creates the board for sess. sub may be nil, in which case the board
// only refreshes on demand and after its own writes.
func New(sess *session.Session, st Backend, sub *notify.Subscription) Model {
	k := keys.DefaultKeyMap()
	admin := sess.Identity().IsAdmin()
	m := Model{
		sess:     sess,
		store:    st,
		sub:      sub,
		keys:     k,
		layout:   ui.NewLayout(80, 24),
		tasks:    tasklist.New(k, admin, 60, 22),
		helpView: helpview.New(k, admin, 80, 24),
		form:     taskform.New(80, 24),
		detail:   detail.New(k, 80, 22),
	}
	m.applySnapshot(sess.Snapshot())
	return m
}

// Init loads the board and starts listening for changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.waitForChange())
}

// Snapshot returns the snapshot currently rendered.
func (m Model) Snapshot() *session.Snapshot {
	return m.snap
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// Notice returns the last informational message shown in the status bar.
func (m Model) Notice() string {
	return m.notice
}

// Err returns the last error shown in the status bar.
func (m Model) Err() error {
	return m.err
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.tasks.SetSize(m.layout.ListWidth(), m.layout.ContentHeight())
		m.helpView.SetSize(msg.Width, m.layout.ContentHeight())
		m.form.SetSize(msg.Width, m.layout.ContentHeight())
		m.detail.SetSize(msg.Width, m.layout.ContentHeight())
		if m.currentView == ViewForm {
			var cmd tea.Cmd
			m.form, cmd = m.form.Update(msg)
			return m, cmd
		}
		return m, nil

	case snapshotMsg:
		m.err = msg.err
		// Inputs may have changed while the fetch ran; the session's
		// latest snapshot is never older than the one carried here.
		snap := msg.snap
		if latest := m.sess.Snapshot(); snap == nil || latest.Generation > snap.Generation {
			snap = latest
		}
		m.mergeSnapshot(snap)
		if m.currentView == ViewDetail && m.detail.TaskID() != "" {
			return m, m.loadDetail(m.detail.TaskID())
		}
		return m, nil

	case changeMsg:
		return m, tea.Batch(m.refresh(), m.waitForChange())

	case detail.LoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewBoard
		return m, nil

	case detail.CommentMsg:
		return m, m.addComment(msg.TaskID, msg.Body)

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.notice = msg.note
		if m.sub != nil {
			return m, nil
		}
		return m, m.refresh()

	case taskform.SubmittedMsg:
		m.currentView = ViewBoard
		return m, m.createTask(msg.Task)

	case taskform.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.currentView == ViewForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.currentView {
	case ViewForm:
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd

	case ViewDetail:
		if !m.detail.Composing() && key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case ViewHelp:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Back):
			m.currentView = ViewBoard
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.tasks, cmd = m.tasks.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.SidebarPrev):
		m.moveSidebar(-1)
		return m, nil

	case key.Matches(msg, m.keys.SidebarNext):
		m.moveSidebar(1)
		return m, nil

	case key.Matches(msg, m.keys.Select):
		m.selectSidebar()
		return m, nil

	case key.Matches(msg, m.keys.CycleStatus):
		sel := m.snap.Selection
		sel.Status = nextStatus(sel.Status)
		m.setSelection(sel)
		return m, nil

	case key.Matches(msg, m.keys.CyclePriority):
		sel := m.snap.Selection
		sel.Priority = nextPriority(sel.Priority)
		m.setSelection(sel)
		return m, nil

	case key.Matches(msg, m.keys.CycleCompany):
		if !m.sess.Identity().IsAdmin() {
			m.notice = "company filter is available to admins only"
			return m, nil
		}
		sel := m.snap.Selection
		sel.Company = nextCompany(sel.Company, m.snap.Companies)
		m.setSelection(sel)
		return m, nil

	case key.Matches(msg, m.keys.ClearFacets):
		m.setSelection(filter.Selection{})
		return m, nil

	case key.Matches(msg, m.keys.Archived):
		m.sess.ShowArchived()
		m.applySnapshot(m.sess.Snapshot())
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.snap.Archived() {
			m.sess.LeaveArchived()
			m.applySnapshot(m.sess.Snapshot())
		}
		return m, nil

	case key.Matches(msg, m.keys.ViewTask):
		t, ok := m.tasks.Selected()
		if !ok {
			return m, nil
		}
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, m.loadDetail(t.ID)

	case key.Matches(msg, m.keys.Advance):
		if m.snap.Archived() {
			m.notice = "restore the task before changing its status"
			return m, nil
		}
		return m, m.advanceSelected()

	case key.Matches(msg, m.keys.SetPriority):
		if !filter.CanChangePriority(m.sess.Identity()) {
			m.notice = "only admins can change priority"
			return m, nil
		}
		if m.snap.Archived() {
			m.notice = "restore the task before changing its priority"
			return m, nil
		}
		return m, m.reprioritizeSelected()

	case key.Matches(msg, m.keys.Restore):
		if !m.snap.Archived() {
			return m, nil
		}
		return m, m.restoreSelected()

	case key.Matches(msg, m.keys.NewTask):
		if m.snap.Archived() {
			return m, nil
		}
		var companies []model.Company
		preselect := ""
		if m.sess.Identity().IsAdmin() {
			companies = m.snap.Companies
			if m.snap.Sidebar != nil {
				preselect = *m.snap.Sidebar
			}
			if len(companies) == 0 {
				m.notice = "create a company before filing tasks"
				return m, nil
			}
		}
		m.currentView = ViewForm
		return m, m.form.Start(companies, preselect)
	}

	return m, nil
}

// applySnapshot renders snap and moves the sidebar cursor to the selected company.
func (m *Model) applySnapshot(snap *session.Snapshot) {
	if snap == nil {
		return
	}
	m.snap = snap
	m.anchorSidebar()
	m.tasks.SetTasks(snap.Tasks, snap.Archived(), !snap.Selection.IsEmpty())
}

// mergeSnapshot renders a snapshot produced by a refresh. The sidebar cursor
// stays on the company it points at unless the sidebar selection or the mode
// changed underneath it.
func (m *Model) mergeSnapshot(snap *session.Snapshot) {
	if snap == nil {
		return
	}
	prev := m.snap
	cursor := m.sidebarCursorID()
	m.snap = snap
	m.tasks.SetTasks(snap.Tasks, snap.Archived(), !snap.Selection.IsEmpty())

	if prev == nil || prev.Mode != snap.Mode || !sameCompany(prev.Sidebar, snap.Sidebar) {
		m.anchorSidebar()
		return
	}
	if cursor == "" {
		m.sideIdx = 0
		return
	}
	if idx := companyIndex(snap.Companies, cursor); idx >= 0 {
		m.sideIdx = idx + 1
		return
	}
	m.anchorSidebar()
}

func (m *Model) anchorSidebar() {
	m.sideIdx = 0
	if m.snap.Sidebar != nil {
		if idx := companyIndex(m.snap.Companies, *m.snap.Sidebar); idx >= 0 {
			m.sideIdx = idx + 1
		}
	}
}

// sidebarCursorID returns the company under the sidebar cursor, or "" for
// "All companies".
func (m *Model) sidebarCursorID() string {
	if m.snap == nil || m.sideIdx == 0 || m.sideIdx > len(m.snap.Companies) {
		return ""
	}
	return m.snap.Companies[m.sideIdx-1].ID
}

func companyIndex(companies []model.Company, id string) int {
	for i, c := range companies {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func sameCompany(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *Model) setSelection(sel filter.Selection) {
	if err := m.sess.SetSelection(sel); err != nil {
		m.err = err
		return
	}
	m.applySnapshot(m.sess.Snapshot())
}

// moveSidebar moves the cursor over "All companies" followed by each
// visible company, wrapping at both ends.
func (m *Model) moveSidebar(delta int) {
	n := len(m.snap.Companies) + 1
	m.sideIdx = ((m.sideIdx+delta)%n + n) % n
}

func (m *Model) selectSidebar() {
	if m.sideIdx == 0 {
		m.sess.ClearCompany()
	} else {
		m.sess.SelectCompany(m.snap.Companies[m.sideIdx-1].ID)
	}
	m.applySnapshot(m.sess.Snapshot())
}

func (m Model) refresh() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		err := sess.Refresh(ctx)
		return snapshotMsg{snap: sess.Snapshot(), err: err}
	}
}

// waitForChange blocks on the change feed. A closed subscription ends the loop.
func (m Model) waitForChange() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	ch := m.sub.Ch()
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changeMsg{}
	}
}

// editableSelected returns the task under the cursor when the viewer may edit it.
func (m *Model) editableSelected() (model.Task, bool) {
	t, ok := m.tasks.Selected()
	if !ok {
		return model.Task{}, false
	}
	if !filter.CanEditTask(m.sess.Identity(), t) {
		m.err = fmt.Errorf("cannot edit task %q: %w", t.Title, filter.ErrUnauthorized)
		return model.Task{}, false
	}
	return t, true
}

func (m *Model) advanceSelected() tea.Cmd {
	t, ok := m.editableSelected()
	if !ok {
		return nil
	}
	st := m.store
	next := t.Status.Next()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := st.UpdateTaskStatus(ctx, t.ID, next); err != nil {
			return actionDoneMsg{err: fmt.Errorf("updating status: %w", err)}
		}
		return actionDoneMsg{note: fmt.Sprintf("%q is now %s", t.Title, next.Label())}
	}
}

// reprioritizeSelected steps the selected task through high, medium and low.
func (m *Model) reprioritizeSelected() tea.Cmd {
	t, ok := m.tasks.Selected()
	if !ok {
		return nil
	}
	st := m.store
	next := nextTaskPriority(t.Priority)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := st.UpdateTaskPriority(ctx, t.ID, next); err != nil {
			return actionDoneMsg{err: fmt.Errorf("updating priority: %w", err)}
		}
		return actionDoneMsg{note: fmt.Sprintf("%q is now %s priority", t.Title, next.Label())}
	}
}

func (m *Model) restoreSelected() tea.Cmd {
	t, ok := m.editableSelected()
	if !ok {
		return nil
	}
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := st.RestoreTask(ctx, t.ID); err != nil {
			return actionDoneMsg{err: fmt.Errorf("restoring task: %w", err)}
		}
		return actionDoneMsg{note: fmt.Sprintf("restored %q", t.Title)}
	}
}

func (m Model) createTask(draft model.Task) tea.Cmd {
	id := m.sess.Identity()
	st := m.store
	return func() tea.Msg {
		companyID, err := filter.TaskCompanyFor(id, draft.CompanyID)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		draft.CompanyID = companyID
		draft.CreatedBy = id.UserID

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		created, err := st.CreateTask(ctx, draft)
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("creating task: %w", err)}
		}
		return actionDoneMsg{note: fmt.Sprintf("filed %q", created.Title)}
	}
}

// loadDetail reads the task from the current snapshot, so a task that is no
// longer visible cannot be opened, then loads its comments and attachments.
func (m Model) loadDetail(taskID string) tea.Cmd {
	var task *model.Task
	for i := range m.snap.Tasks {
		if m.snap.Tasks[i].ID == taskID {
			task = &m.snap.Tasks[i]
			break
		}
	}
	if task == nil {
		return func() tea.Msg {
			return detail.LoadedMsg{Err: fmt.Errorf("task %s is no longer on the board", taskID)}
		}
	}

	t := *task
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		comments, err := st.ListComments(ctx, t.ID)
		if err != nil {
			return detail.LoadedMsg{Err: fmt.Errorf("loading comments: %w", err)}
		}
		attachments, err := st.ListAttachments(ctx, t.ID)
		if err != nil {
			return detail.LoadedMsg{Err: fmt.Errorf("loading attachments: %w", err)}
		}
		return detail.LoadedMsg{Detail: &detail.Detail{Task: t, Comments: comments, Attachments: attachments}}
	}
}

func (m Model) addComment(taskID, body string) tea.Cmd {
	id := m.sess.Identity()
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := st.AddComment(ctx, model.Comment{TaskID: taskID, UserID: id.UserID, Body: body})
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("adding comment: %w", err)}
		}
		return actionDoneMsg{note: "comment added"}
	}
}

func nextStatus(cur *model.Status) *model.Status {
	return cycle(cur, model.Statuses)
}

func nextTaskPriority(cur model.Priority) model.Priority {
	for i, p := range model.Priorities {
		if p == cur {
			return model.Priorities[(i+1)%len(model.Priorities)]
		}
	}
	return model.PriorityMedium
}

func nextPriority(cur *model.Priority) *model.Priority {
	return cycle(cur, model.Priorities)
}

func nextCompany(cur *string, companies []model.Company) *string {
	ids := make([]string, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
	}
	return cycle(cur, ids)
}

// cycle steps through none, values[0], ..., values[n-1], none.
func cycle[T comparable](cur *T, values []T) *T {
	if cur == nil {
		if len(values) == 0 {
			return nil
		}
		v := values[0]
		return &v
	}
	for i, v := range values {
		if v == *cur && i+1 < len(values) {
			next := values[i+1]
			return &next
		}
	}
	return nil
}

// View renders the current view within the frame.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.title(), m.summary())
	status := m.layout.RenderStatusBar(m.statusLine())

	var content string
	switch m.currentView {
	case ViewHelp:
		content = m.helpView.View()
	case ViewForm:
		content = m.form.View()
	case ViewDetail:
		content = m.detail.View()
	default:
		content = m.layout.RenderColumns(m.renderSidebar(), m.tasks.View())
	}

	return m.layout.RenderWithFrame(header, content, status)
}

func (m Model) title() string {
	t := "Company Tasks"
	if id := m.sess.Identity(); id != nil && id.Name != "" {
		t += " · " + id.Name
	}
	if m.snap.SidebarName != "" {
		t += " · " + m.snap.SidebarName
	}
	return t
}

func (m Model) summary() string {
	c := m.snap.Counts
	s := fmt.Sprintf("%d total  %d open  %d in progress  %d done",
		c.Total, c.Open, c.Progress, c.Completed)
	if m.snap.Archived() {
		s = theme.ArchivedBannerStyle.Render("ARCHIVED") + " " + s
	}
	return s
}

func (m Model) statusLine() string {
	if m.err != nil {
		return theme.ErrorStyle.Render(m.err.Error())
	}
	if m.snap.Err != nil {
		return theme.ErrorStyle.Render(m.snap.Err.Error())
	}
	if !m.snap.Loaded {
		return "loading board..."
	}
	line := m.facetLine()
	if m.notice != "" {
		line = m.notice + "  " + line
	}
	return line + "  " + m.helpView.ShortView()
}

func (m Model) facetLine() string {
	sel := m.snap.Selection
	status, priority, company := "any", "any", "any"
	if sel.Status != nil {
		status = sel.Status.Label()
	}
	if sel.Priority != nil {
		priority = sel.Priority.Label()
	}
	if sel.Company != nil {
		company = *sel.Company
		if name, ok := filter.CompanyName(m.snap.Companies, *sel.Company); ok {
			company = name
		}
	}
	line := fmt.Sprintf("status:%s priority:%s", status, priority)
	if m.sess.Identity().IsAdmin() {
		line += " company:" + company
	}
	return line
}

func (m Model) renderSidebar() string {
	rows := make([]string, 0, len(m.snap.Companies)+2)
	rows = append(rows, theme.HeaderStyle.Render("Companies"))
	rows = append(rows, m.sidebarRow(0, "All companies", -1))
	for i, c := range m.snap.Companies {
		rows = append(rows, m.sidebarRow(i+1, c.Name, c.TaskCount))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) sidebarRow(idx int, name string, count int) string {
	label := name
	if count >= 0 {
		label = fmt.Sprintf("%s (%d)", name, count)
	}
	active := (idx == 0 && m.snap.Sidebar == nil) ||
		(idx > 0 && m.snap.Sidebar != nil && m.snap.Companies[idx-1].ID == *m.snap.Sidebar)
	if active {
		label = "● " + label
	} else {
		label = "  " + label
	}
	if idx == m.sideIdx {
		return theme.SelectedItemStyle.Render(label)
	}
	return theme.ListItemStyle.Render(label)
}
