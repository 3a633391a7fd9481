package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/notify"
	"github.com/nhle/company-tasks/internal/store"
)

// Reader is the slice of the entity store a session reads from.
type Reader interface {
	ListCompanies(ctx context.Context, activeOnly bool) ([]model.Company, error)
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]model.Task, error)
}

// Snapshot is an immutable, internally consistent view of the board.
// Every field was derived from the same fetched data and the same inputs.
type Snapshot struct {
	Generation uint64          `json:"generation"`
	Identity   *model.Identity `json:"identity"`
	Mode       Mode            `json:"mode"`

	// Companies are the visible companies with live task counts.
	Companies []model.Company `json:"companies"`

	// Tasks are the displayed tasks: the composed live tasks in normal mode,
	// the scoped archived tasks in archived mode.
	Tasks  []model.Task  `json:"tasks"`
	Counts filter.Counts `json:"counts"`

	Selection   filter.Selection `json:"selection"`
	Sidebar     *string          `json:"sidebar,omitempty"`
	SidebarName string           `json:"sidebar_name,omitempty"`

	// Loaded is false until the first successful fetch.
	Loaded bool `json:"loaded"`

	// Err is the most recent failure. A fetch error keeps the previous data.
	Err error `json:"-"`
}

// Archived reports whether the snapshot lists archived tasks.
func (s *Snapshot) Archived() bool {
	return s.Mode == ModeArchived
}

// Session owns one viewer's identity and inputs and publishes a new
// Snapshot whenever the fetched data or the inputs change.
type Session struct {
	store  Reader
	logger *log.Logger
	id     *model.Identity

	// mu serializes recomputation and guards everything below it.
	mu        sync.Mutex
	sel       filter.Selection
	sidebar   *string
	mode      Mode
	companies []model.Company
	tasks     []model.Task
	archived  []model.Task
	loaded    bool
	lastErr   error
	gen       uint64
	fetchSeq  uint64
	applied   uint64

	snap atomic.Pointer[Snapshot]
}

// New creates a session for id. Company users start with their own company
// selected in the sidebar. The initial snapshot is empty until Refresh.
func New(r Reader, id *model.Identity, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Session{
		store:  r,
		logger: logger,
		id:     id,
		mode:   ModeNormal,
	}
	if id != nil && id.Role == model.RoleCompanyUser && id.CompanyID != "" {
		own := id.CompanyID
		s.sidebar = &own
	}

	s.mu.Lock()
	s.recompute()
	s.mu.Unlock()
	return s
}

// Snapshot returns the latest published view. It never returns nil.
func (s *Session) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Identity returns the identity the session was created for.
func (s *Session) Identity() *model.Identity {
	return s.id
}

// Refresh refetches companies and tasks and republishes. Results of a fetch
// overtaken by a later one are discarded.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	companies, tasks, archived, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.applied {
		s.logger.WithField("seq", seq).Debug("discarding stale fetch")
		return nil
	}
	s.applied = seq

	if err != nil {
		s.logger.WithError(err).Warn("refresh failed, keeping previous board")
		s.lastErr = err
		s.recompute()
		return err
	}

	s.companies, s.tasks, s.archived = companies, tasks, archived
	s.loaded = true
	s.lastErr = nil
	s.recompute()
	return nil
}

func (s *Session) fetch(ctx context.Context) ([]model.Company, []model.Task, []model.Task, error) {
	companies, err := s.store.ListCompanies(ctx, true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing companies: %w", err)
	}
	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing tasks: %w", err)
	}
	archived, err := s.store.ListTasks(ctx, store.TaskFilter{Archived: true})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing archived tasks: %w", err)
	}
	return companies, tasks, archived, nil
}

// SetSelection replaces the facet selection. Invalid facets are rejected
// and leave the session unchanged.
func (s *Session) SetSelection(sel filter.Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = sel
	s.recompute()
	return nil
}

// SelectCompany sets the sidebar selection and leaves archived mode.
func (s *Session) SelectCompany(companyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if companyID == "" {
		s.sidebar = nil
	} else {
		s.sidebar = &companyID
	}
	s.mode = ModeNormal
	s.recompute()
}

// ClearCompany removes the sidebar selection.
func (s *Session) ClearCompany() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebar = nil
	s.recompute()
}

// ShowArchived toggles archived mode.
func (s *Session) ShowArchived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeArchived {
		s.mode = ModeNormal
	} else {
		s.mode = ModeArchived
	}
	s.recompute()
}

// LeaveArchived returns to normal mode.
func (s *Session) LeaveArchived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeNormal
	s.recompute()
}

// Run refetches on every change event until ctx is done or events closes,
// calling onUpdate with each published snapshot.
func (s *Session) Run(ctx context.Context, events <-chan notify.Event, onUpdate func(*Snapshot)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.logger.WithField("table", ev.Table).Debug("change event, refreshing")
			if err := s.Refresh(ctx); err != nil && errors.Is(err, context.Canceled) {
				return
			}
			if onUpdate != nil {
				onUpdate(s.Snapshot())
			}
		}
	}
}

// recompute derives and publishes a new snapshot. Callers hold s.mu.
func (s *Session) recompute() {
	s.gen++
	snap := &Snapshot{
		Generation: s.gen,
		Identity:   s.id,
		Mode:       s.mode,
		Selection:  s.sel,
		Sidebar:    s.sidebar,
		Companies:  []model.Company{},
		Tasks:      []model.Task{},
		Loaded:     s.loaded,
		Err:        s.lastErr,
	}

	vis, err := filter.Visible(s.companies, s.tasks, s.id)
	if err != nil {
		s.logger.WithError(err).Error("refusing to build board for invalid identity")
		snap.Err = err
		s.snap.Store(snap)
		return
	}

	snap.Companies = filter.CompanyTaskCounts(vis.Companies, vis.Tasks)
	snap.SidebarName = filter.SelectedCompanyName(vis, s.sidebar)

	switch s.mode {
	case ModeArchived:
		archived := s.scopedArchived()
		snap.Tasks = archived
		snap.Counts = filter.CountByStatus(archived)
	default:
		res := filter.Compose(vis, s.sel, s.sidebar, s.id.Role)
		snap.Tasks = res.Tasks
		snap.Counts = res.Counts
	}

	s.snap.Store(snap)
}

// scopedArchived applies the archived scope, then visibility, to the
// archived tasks. Callers hold s.mu.
func (s *Session) scopedArchived() []model.Task {
	scope := filter.ArchivedScope(s.id, s.sidebar)
	scoped := make([]model.Task, 0, len(s.archived))
	for _, t := range s.archived {
		if scope != nil && t.CompanyID != *scope {
			continue
		}
		scoped = append(scoped, t)
	}
	vis, err := filter.Visible(s.companies, scoped, s.id)
	if err != nil {
		return []model.Task{}
	}
	return vis.Tasks
}
