// Package listsync keeps a paginated, filterable and polled view of server-side
// leads consistent while optimistic mutations are in flight.
//
// All state lives in a Controller and is only touched under its mutex; network
// calls and timer waits happen outside it. Completions are applied in whatever
// order they arrive, and the pagination flags, per-lead operation entries,
// filter generations and the lifecycle guard decide which of them still count.
package listsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultPageSize is the number of leads requested per page.
const DefaultPageSize = 15

var (
	// ErrFetchInFlight is returned when a visible fetch is requested while another one runs.
	ErrFetchInFlight = errors.New("a fetch is already in progress")
	// ErrNoMorePages is returned by loadMore when the last page is already loaded.
	ErrNoMorePages = errors.New("no more pages")
	// ErrPollSkipped is returned when a poll is dropped because a fetch is running.
	ErrPollSkipped = errors.New("poll skipped")
	// ErrClosed is returned by operations started after Close.
	ErrClosed = errors.New("lead list is closed")

	errResyncDeferred = errors.New("resync deferred until the running fetch completes")
)

// Repository is the lead API consumed by the controller.
type Repository interface {
	FetchLeads(ctx context.Context, filters domain.FilterState, page, pageSize int) (domain.LeadPage, error)
	MutateLead(ctx context.Context, leadID int, m domain.Mutation) (domain.MutationResult, error)
	ListAssignees(ctx context.Context) ([]domain.Assignee, error)
}

// Reporter receives user-facing messages for failures that have no caller to
// return to, such as a debounced fetch or a rollback refresh.
type Reporter interface {
	Error(msg string)
	Warning(msg string)
}

// NotificationSource delivers "a push notification about this lead was opened"
// events. Subscribe returns a function that removes the listener.
type NotificationSource interface {
	Subscribe(fn func(leadID int)) (unsubscribe func())
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	PageSize       int
	DebounceDelay  time.Duration
	PollInterval   time.Duration
	Scheduler      Scheduler
	Logger         logging.Logger
	Reporter       Reporter
	Notifications  NotificationSource
	InitialFilters domain.FilterState
	// OnChange receives a snapshot after every state change. Snapshots are
	// delivered in order, stale ones are skipped. It must not call back into
	// the controller's mutating methods synchronously.
	OnChange func(Snapshot)
	Now      func() time.Time
}

// PaginationState is the pagination metadata plus the in-flight flags. At most
// one of LoadingFirstPage, Refreshing and LoadingMore is true at a time.
// Polling is tracked separately and is never shown to the user.
type PaginationState struct {
	domain.Pagination
	LoadingFirstPage bool
	Refreshing       bool
	LoadingMore      bool
	Polling          bool
}

// Busy reports whether a visible fetch is in flight.
func (p PaginationState) Busy() bool {
	return p.LoadingFirstPage || p.Refreshing || p.LoadingMore
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Version        uint64
	Leads          []domain.Lead
	Pagination     PaginationState
	Filters        domain.FilterState
	Pending        map[int]domain.OperationKind
	Assignees      []domain.Assignee
	ExpandedLeadID int
	Loaded         bool
	LastPolled     time.Time
	LastUpdated    time.Time
}

// Lead returns the lead with id from the snapshot.
func (s Snapshot) Lead(id int) (domain.Lead, bool) {
	for _, l := range s.Leads {
		if l.ID == id {
			return l, true
		}
	}
	return domain.Lead{}, false
}

// Controller owns the lead list of one active view.
type Controller struct {
	repo      Repository
	opts      Options
	log       logging.Logger
	guard     *Guard
	debouncer *Debouncer
	poller    *Poller
	now       func() time.Time
	activate  sync.Once

	mu          sync.Mutex
	leads       []domain.Lead
	pag         PaginationState
	filters     domain.FilterState
	filterGen   uint64
	fetchSeq    uint64
	ops         map[int]domain.OperationKind
	patched     map[int]domain.Lead
	commitSeq   uint64
	committed   map[int]committedLead
	assignees   []domain.Assignee
	expanded    int
	loaded      bool
	resync      bool
	resyncMode  Mode
	lastUpdated time.Time
	version     uint64

	pubMu     sync.Mutex
	published uint64
}

// New creates a controller. Nothing is fetched until Activate.
func New(repo Repository, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.DebounceDelay == 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	log := opts.Logger
	if log == nil {
		log = logging.GetGlobal()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = CronScheduler{Logger: log}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		repo:      repo,
		opts:      opts,
		log:       log.With("component", "listsync"),
		guard:     NewGuard(),
		now:       now,
		filters:   opts.InitialFilters.Clone(),
		ops:       make(map[int]domain.OperationKind),
		patched:   make(map[int]domain.Lead),
		committed: make(map[int]committedLead),
	}
	c.debouncer = NewDebouncer(c.guard, opts.DebounceDelay, c.applyFilters)
	c.poller = NewPoller(c.guard, opts.Scheduler, opts.PollInterval, func() {
		_ = c.Poll(c.guard.Context())
	})
	return c
}

// Activate subscribes to lead notifications and loads the assignee directory
// and the first page concurrently. A directory failure is reported as a
// warning and does not fail activation; a first page failure is returned.
func (c *Controller) Activate(ctx context.Context) error {
	if !c.guard.Alive() {
		return ErrClosed
	}
	c.activate.Do(func() {
		if c.opts.Notifications != nil {
			unsubscribe := c.opts.Notifications.Subscribe(c.HandleLeadOpened)
			c.guard.OnClose(unsubscribe)
		}
	})

	var g errgroup.Group
	g.Go(func() error {
		if err := c.RefreshAssignees(ctx); err != nil && !errors.Is(err, domain.ErrStaleOperation) {
			c.log.Warn("assignee directory unavailable", "error", err)
			c.warn("Assignees could not be loaded; assignment is unavailable: " + domain.UserMessage(err))
		}
		return nil
	})
	g.Go(func() error {
		return c.RequestPage(ctx, ModeFirst)
	})
	return g.Wait()
}

// RefreshAssignees reloads the assignee directory.
func (c *Controller) RefreshAssignees(ctx context.Context) error {
	assignees, err := c.repo.ListAssignees(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		return domain.ErrStaleOperation
	}
	c.assignees = append([]domain.Assignee(nil), assignees...)
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
	return nil
}

// Assignees returns the current assignee directory.
func (c *Controller) Assignees() []domain.Assignee {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Assignee(nil), c.assignees...)
}

// HandleLeadOpened marks leadID as the expanded lead, e.g. after the user
// opened a push notification about it.
func (c *Controller) HandleLeadOpened(leadID int) {
	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		return
	}
	c.expanded = leadID
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
}

// SetExpanded sets or clears (0) the expanded lead.
func (c *Controller) SetExpanded(leadID int) {
	c.HandleLeadOpened(leadID)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// LastPolled returns the time of the last successful poll.
func (c *Controller) LastPolled() time.Time {
	return c.poller.LastPolled()
}

// UpdatedAgo returns how long ago the list was last synchronized with the
// server, or -1 if it never was.
func (c *Controller) UpdatedAgo(now time.Time) time.Duration {
	c.mu.Lock()
	last := c.lastUpdated
	c.mu.Unlock()
	if last.IsZero() {
		return -1
	}
	return now.Sub(last)
}

// Polling reports whether the background poller is running.
func (c *Controller) Polling() bool {
	return c.poller.Running()
}

// Alive reports whether the controller has not been closed.
func (c *Controller) Alive() bool {
	return c.guard.Alive()
}

// Close tears the controller down: pending debounce and poll timers are
// canceled, listeners are removed and late completions are discarded.
func (c *Controller) Close() {
	c.guard.Close()
	c.log.Debug("controller closed")
}

func (c *Controller) snapshotLocked() Snapshot {
	leads := make([]domain.Lead, len(c.leads))
	for i, l := range c.leads {
		leads[i] = l.Clone()
	}
	pending := make(map[int]domain.OperationKind, len(c.ops))
	for id, k := range c.ops {
		pending[id] = k
	}
	return Snapshot{
		Version:        c.version,
		Leads:          leads,
		Pagination:     c.pag,
		Filters:        c.filters.Clone(),
		Pending:        pending,
		Assignees:      append([]domain.Assignee(nil), c.assignees...),
		ExpandedLeadID: c.expanded,
		Loaded:         c.loaded,
		LastPolled:     c.poller.LastPolled(),
		LastUpdated:    c.lastUpdated,
	}
}

// changedLocked bumps the version and returns a function publishing the new
// snapshot. Call it with c.mu held and run the result after unlocking.
func (c *Controller) changedLocked() func() {
	c.version++
	if c.opts.OnChange == nil {
		return func() {}
	}
	snap := c.snapshotLocked()
	return func() { c.publish(snap) }
}

func (c *Controller) publish(s Snapshot) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if s.Version <= c.published {
		return
	}
	c.published = s.Version
	c.opts.OnChange(s)
}

func (c *Controller) warn(msg string) {
	if c.opts.Reporter != nil {
		c.opts.Reporter.Warning(msg)
	}
}

func (c *Controller) reportError(msg string) {
	if c.opts.Reporter != nil {
		c.opts.Reporter.Error(msg)
	}
}

func (c *Controller) indexLocked(leadID int) int {
	for i, l := range c.leads {
		if l.ID == leadID {
			return i
		}
	}
	return -1
}
