package listsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/logging"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fetchReply struct {
	page domain.LeadPage
	err  error
}

// fetchCall is one FetchLeads request held open until the test answers it.
type fetchCall struct {
	Filters  domain.FilterState
	Page     int
	PageSize int
	reply    chan fetchReply
}

func (c *fetchCall) respond(p domain.LeadPage) { c.reply <- fetchReply{page: p} }
func (c *fetchCall) fail(err error)            { c.reply <- fetchReply{err: err} }

type mutateReply struct {
	res domain.MutationResult
	err error
}

type mutateCall struct {
	LeadID   int
	Mutation domain.Mutation
	reply    chan mutateReply
}

func (c *mutateCall) respond(res domain.MutationResult) { c.reply <- mutateReply{res: res} }
func (c *mutateCall) fail(err error)                    { c.reply <- mutateReply{err: err} }

// fakeRepo blocks every fetch and mutation until the test replies, so tests
// decide the order in which completions arrive.
type fakeRepo struct {
	fetches   chan *fetchCall
	mutations chan *mutateCall

	mu           sync.Mutex
	assignees    []domain.Assignee
	assigneesErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		fetches:   make(chan *fetchCall, 16),
		mutations: make(chan *mutateCall, 16),
		assignees: []domain.Assignee{{ID: 7, Name: "Ada"}, {ID: 8, Name: "Grace"}},
	}
}

func (r *fakeRepo) FetchLeads(ctx context.Context, filters domain.FilterState, page, pageSize int) (domain.LeadPage, error) {
	call := &fetchCall{Filters: filters, Page: page, PageSize: pageSize, reply: make(chan fetchReply, 1)}
	r.fetches <- call
	select {
	case rep := <-call.reply:
		return rep.page, rep.err
	case <-ctx.Done():
		return domain.LeadPage{}, ctx.Err()
	}
}

func (r *fakeRepo) MutateLead(ctx context.Context, leadID int, m domain.Mutation) (domain.MutationResult, error) {
	call := &mutateCall{LeadID: leadID, Mutation: m, reply: make(chan mutateReply, 1)}
	r.mutations <- call
	select {
	case rep := <-call.reply:
		return rep.res, rep.err
	case <-ctx.Done():
		return domain.MutationResult{}, ctx.Err()
	}
}

func (r *fakeRepo) ListAssignees(ctx context.Context) ([]domain.Assignee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assigneesErr != nil {
		return nil, r.assigneesErr
	}
	return append([]domain.Assignee(nil), r.assignees...), nil
}

func expectFetch(t *testing.T, r *fakeRepo) *fetchCall {
	t.Helper()
	select {
	case call := <-r.fetches:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("expected a fetch request")
		return nil
	}
}

func expectNoFetch(t *testing.T, r *fakeRepo, wait time.Duration) {
	t.Helper()
	select {
	case call := <-r.fetches:
		t.Fatalf("unexpected fetch of page %d with filters %+v", call.Page, call.Filters)
	case <-time.After(wait):
	}
}

func expectMutation(t *testing.T, r *fakeRepo) *mutateCall {
	t.Helper()
	select {
	case call := <-r.mutations:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("expected a mutation request")
		return nil
	}
}

func expectNoMutation(t *testing.T, r *fakeRepo) {
	t.Helper()
	select {
	case call := <-r.mutations:
		t.Fatalf("unexpected %s on lead %d", call.Mutation.Kind, call.LeadID)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("operation did not complete")
		return nil
	}
}

// manualScheduler records Start/Stop calls and ticks only when told to.
type manualScheduler struct {
	mu      sync.Mutex
	tick    func()
	running bool
	starts  int
	stops   int
}

func (s *manualScheduler) Start(_ time.Duration, tick func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = tick
	s.running = true
	s.starts++
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.running = false
		s.stops++
	}
}

func (s *manualScheduler) Fire() {
	s.mu.Lock()
	tick, running := s.tick, s.running
	s.mu.Unlock()
	if running && tick != nil {
		tick()
	}
}

func (s *manualScheduler) counts() (starts, stops int, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops, s.running
}

// recorder collects published snapshots and reported messages.
type recorder struct {
	mu       sync.Mutex
	snaps    []Snapshot
	errors   []string
	warnings []string
}

func (r *recorder) OnChange(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recorder) Warning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

func (r *recorder) snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func (r *recorder) reported() (errs, warns []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...), append([]string(nil), r.warnings...)
}

type fakeNotifications struct {
	mu           sync.Mutex
	fn           func(int)
	unsubscribed bool
}

func (n *fakeNotifications) Subscribe(fn func(leadID int)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fn = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.unsubscribed = true
		n.fn = nil
	}
}

func (n *fakeNotifications) open(leadID int) {
	n.mu.Lock()
	fn := n.fn
	n.mu.Unlock()
	if fn != nil {
		fn(leadID)
	}
}

type harness struct {
	repo  *fakeRepo
	sched *manualScheduler
	rec   *recorder
	c     *Controller
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{repo: newFakeRepo(), sched: &manualScheduler{}, rec: &recorder{}}
	opts := Options{
		PageSize:      2,
		DebounceDelay: 30 * time.Millisecond,
		Scheduler:     h.sched,
		Logger:        logging.Noop(),
		Reporter:      h.rec,
		OnChange:      h.rec.OnChange,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	h.c = New(h.repo, opts)
	t.Cleanup(h.c.Close)
	return h
}

// activate runs Activate and answers the first page request with p.
func (h *harness) activate(t *testing.T, p domain.LeadPage) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- h.c.Activate(context.Background()) }()
	call := expectFetch(t, h.repo)
	require.Equal(t, 1, call.Page)
	call.respond(p)
	require.NoError(t, waitErr(t, done))
}

// async runs fn in a goroutine and returns its result channel.
func async(fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- fn() }()
	return ch
}

func lead(id int, status domain.Status) domain.Lead {
	return domain.Lead{ID: id, Type: "buyer", Status: status, FirstName: "Lead", LastName: string(rune('A' + id%26))}
}

func assigned(l domain.Lead, a domain.Assignee) domain.Lead {
	l.Assignee = &a
	return l
}

func leadPage(current, last int, leads ...domain.Lead) domain.LeadPage {
	return domain.LeadPage{
		Leads: leads,
		Pagination: domain.Pagination{
			CurrentPage: current,
			LastPage:    last,
			PerPage:     2,
			Total:       last * 2,
			HasNextPage: current < last,
			HasPrevPage: current > 1,
		},
	}
}

func leadIDs(leads []domain.Lead) []int {
	ids := make([]int, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	return ids
}
