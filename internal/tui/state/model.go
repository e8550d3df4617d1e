// Package state holds the bubbletea model of the lead list TUI.
package state

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/errors"
	"github.com/cristianoliveira/leadsync/internal/listsync"
)

const (
	headerFooterLines     = 6
	defaultViewportWidth  = 80
	defaultViewportHeight = 18
	messageDuration       = 5 * time.Second
	tickInterval          = time.Second
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeAssign
	modeStatus
)

func (m mode) String() string {
	switch m {
	case modeSearch:
		return "search"
	case modeAssign:
		return "assign"
	case modeStatus:
		return "status"
	default:
		return ""
	}
}

// LeadList is the part of the list controller the TUI drives.
type LeadList interface {
	Snapshot() listsync.Snapshot
	Refresh(ctx context.Context) error
	LoadMore(ctx context.Context) error
	Filters() domain.FilterState
	SetSearch(term string)
	SetStatusFilter(status domain.Status)
	SetExpanded(leadID int)
	Assign(ctx context.Context, leadID, assigneeID int) error
	Unassign(ctx context.Context, leadID int) error
	ChangeStatus(ctx context.Context, leadID int, status domain.Status) error
	Notify(ctx context.Context, leadID int) (string, error)
	UpdatedAgo(now time.Time) time.Duration
}

// Model represents the TUI model for bubbletea.
type Model struct {
	ctx          context.Context
	list         LeadList
	inbox        *Inbox
	errorHandler *errors.TUIHandler
	now          func() time.Time

	snap     listsync.Snapshot
	cursor   int
	mode     mode
	picker   int
	width    int
	height   int
	search   textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
}

// Option customizes a Model.
type Option func(*Model)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// NewModel creates the TUI model. inbox must be the one the controller
// publishes to and errorHandler the controller's reporter.
func NewModel(ctx context.Context, list LeadList, inbox *Inbox, errorHandler *errors.TUIHandler, opts ...Option) *Model {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "name, email or phone"
	search.SetValue(list.Filters().Search)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:          ctx,
		list:         list,
		inbox:        inbox,
		errorHandler: errorHandler,
		now:          time.Now,
		snap:         list.Snapshot(),
		search:       search,
		spinner:      sp,
		viewport:     viewport.New(defaultViewportWidth, defaultViewportHeight),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.updateViewportContent()
	return m
}

// Init starts listening for controller updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.inbox.Wait(), m.spinner.Tick, tickEvery(tickInterval))
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerFooterLines, 1)
		m.updateViewportContent()
		return m, nil
	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		return m, m.inbox.Wait()
	case wakeMsg:
		return m, m.inbox.Wait()
	case actionDoneMsg:
		m.handleActionDone(msg)
		return m, nil
	case tickMsg:
		return m, tickEvery(tickInterval)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applySnapshot(s listsync.Snapshot) {
	if s.Version < m.snap.Version {
		return
	}
	selected := m.selectedID()
	if s.ExpandedLeadID != 0 && s.ExpandedLeadID != m.snap.ExpandedLeadID {
		// a lead opened from a notification takes the selection
		selected = s.ExpandedLeadID
	}
	m.snap = s
	// keep the cursor on the same lead when rows shift
	if selected != 0 {
		for i, l := range s.Leads {
			if l.ID == selected {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor()
	m.updateViewportContent()
}

func (m *Model) handleActionDone(msg actionDoneMsg) {
	switch {
	case stderrors.Is(msg.err, listsync.ErrFetchInFlight):
		return
	case stderrors.Is(msg.err, listsync.ErrNoMorePages):
		m.errorHandler.Info("All leads are loaded")
		return
	case msg.err != nil:
		errors.Handle(m.errorHandler, msg.err)
		return
	}
	if msg.message != "" {
		m.errorHandler.Success(msg.message)
	}
}

func (m *Model) selectedLead() (domain.Lead, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Leads) {
		return domain.Lead{}, false
	}
	return m.snap.Leads[m.cursor], true
}

func (m *Model) selectedID() int {
	if l, ok := m.selectedLead(); ok {
		return l.ID
	}
	return 0
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snap.Leads) {
		m.cursor = len(m.snap.Leads) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
