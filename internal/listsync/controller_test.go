package listsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = domain.Assignee{ID: 7, Name: "Ada"}

func TestActivate_LoadsFirstPageAndAssignees(t *testing.T) {
	h := newHarness(t)

	done := async(func() error { return h.c.Activate(context.Background()) })
	call := expectFetch(t, h.repo)
	assert.Equal(t, 1, call.Page)
	assert.Equal(t, 2, call.PageSize)

	snap := h.c.Snapshot()
	assert.True(t, snap.Pagination.LoadingFirstPage)
	assert.False(t, snap.Loaded)

	call.respond(leadPage(1, 3, lead(1, domain.StatusPending), lead(2, domain.StatusContacted)))
	require.NoError(t, waitErr(t, done))

	snap = h.c.Snapshot()
	assert.Equal(t, []int{1, 2}, leadIDs(snap.Leads))
	assert.True(t, snap.Loaded)
	assert.False(t, snap.Pagination.LoadingFirstPage)
	assert.Equal(t, 1, snap.Pagination.CurrentPage)
	assert.True(t, snap.Pagination.HasNextPage)
	assert.Len(t, snap.Assignees, 2)
	assert.True(t, h.c.Polling(), "poller starts after the first successful load")
	assert.GreaterOrEqual(t, h.c.UpdatedAgo(time.Now()), time.Duration(0))
}

func TestActivate_AssigneeFailureIsOnlyAWarning(t *testing.T) {
	h := newHarness(t)
	h.repo.assigneesErr = &domain.APIError{Op: "list assignees", StatusCode: 500, Message: "boom"}

	h.activate(t, leadPage(1, 1, lead(1, domain.StatusPending)))

	errs, warns := h.rec.reported()
	assert.Empty(t, errs)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "boom")
	assert.Len(t, h.c.Snapshot().Leads, 1)
}

func TestActivate_FirstPageFailureIsReturned(t *testing.T) {
	h := newHarness(t)

	done := async(func() error { return h.c.Activate(context.Background()) })
	expectFetch(t, h.repo).fail(&domain.NetworkError{Op: "fetch leads", Err: errors.New("refused")})

	err := waitErr(t, done)
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))
	assert.False(t, h.c.Snapshot().Loaded)
	assert.False(t, h.c.Polling())
}

func TestUpdatedAgo_NeverLoaded(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, time.Duration(-1), h.c.UpdatedAgo(time.Now()))
}

func TestVisibleFetchesAreMutuallyExclusive(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 3, lead(1, domain.StatusPending), lead(2, domain.StatusPending)))
	ctx := context.Background()

	refresh := async(func() error { return h.c.Refresh(ctx) })
	call := expectFetch(t, h.repo)
	require.True(t, h.c.Snapshot().Pagination.Refreshing)

	assert.ErrorIs(t, h.c.LoadMore(ctx), ErrFetchInFlight)
	assert.ErrorIs(t, h.c.RequestPage(ctx, ModeFirst), ErrFetchInFlight)
	assert.ErrorIs(t, h.c.Refresh(ctx), ErrFetchInFlight)
	expectNoFetch(t, h.repo, 30*time.Millisecond)

	call.respond(leadPage(1, 3, lead(1, domain.StatusPending), lead(2, domain.StatusPending)))
	require.NoError(t, waitErr(t, refresh))

	more := async(func() error { return h.c.LoadMore(ctx) })
	next := expectFetch(t, h.repo)
	assert.Equal(t, 2, next.Page, "next fetch only after the previous one completed")
	next.respond(leadPage(2, 3, lead(3, domain.StatusPending)))
	require.NoError(t, waitErr(t, more))
}

func TestLoadMore_AppendsNextPage(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.PageSize = 15 })
	first := make([]domain.Lead, 0, 15)
	for id := 1; id <= 15; id++ {
		first = append(first, lead(id, domain.StatusPending))
	}
	h.activate(t, leadPage(1, 2, first...))

	more := async(func() error { return h.c.LoadMore(context.Background()) })
	call := expectFetch(t, h.repo)
	assert.Equal(t, 2, call.Page)
	assert.True(t, h.c.Snapshot().Pagination.LoadingMore)

	second := make([]domain.Lead, 0, 15)
	for id := 16; id <= 30; id++ {
		second = append(second, lead(id, domain.StatusPending))
	}
	call.respond(leadPage(2, 2, second...))
	require.NoError(t, waitErr(t, more))

	snap := h.c.Snapshot()
	require.Len(t, snap.Leads, 30)
	assert.Equal(t, 1, snap.Leads[0].ID)
	assert.Equal(t, 30, snap.Leads[29].ID)
	assert.Equal(t, 2, snap.Pagination.CurrentPage)
	assert.False(t, snap.Pagination.HasNextPage)
	assert.True(t, snap.Pagination.HasPrevPage)

	assert.ErrorIs(t, h.c.LoadMore(context.Background()), ErrNoMorePages)
}

func TestLoadMore_ShiftedLeadIsUpdatedInPlace(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 2, lead(1, domain.StatusPending), lead(2, domain.StatusPending)))

	more := async(func() error { return h.c.LoadMore(context.Background()) })
	expectFetch(t, h.repo).respond(leadPage(2, 2, lead(2, domain.StatusHired), lead(3, domain.StatusPending)))
	require.NoError(t, waitErr(t, more))

	snap := h.c.Snapshot()
	assert.Equal(t, []int{1, 2, 3}, leadIDs(snap.Leads))
	assert.Equal(t, domain.StatusHired, snap.Leads[1].Status)
}

func TestLoadMore_BeforeFirstLoad(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.c.LoadMore(context.Background()), ErrNoMorePages)
	expectNoFetch(t, h.repo, 20*time.Millisecond)
}

func TestFailedFetchKeepsDisplayedLeads(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 2, lead(1, domain.StatusPending), lead(2, domain.StatusPending)))

	refresh := async(func() error { return h.c.Refresh(context.Background()) })
	expectFetch(t, h.repo).fail(&domain.APIError{Op: "fetch leads", StatusCode: 503, Message: "unavailable"})
	err := waitErr(t, refresh)
	require.Error(t, err)
	assert.Equal(t, 503, domain.StatusCode(err))

	more := async(func() error { return h.c.LoadMore(context.Background()) })
	expectFetch(t, h.repo).fail(&domain.NetworkError{Op: "fetch leads", Err: errors.New("timeout")})
	require.Error(t, waitErr(t, more))

	snap := h.c.Snapshot()
	assert.Equal(t, []int{1, 2}, leadIDs(snap.Leads))
	assert.False(t, snap.Pagination.Busy())
	assert.Equal(t, 1, snap.Pagination.CurrentPage)
}

func TestPoll_SuppressedWhileVisibleFetchInFlight(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 1, lead(1, domain.StatusPending)))

	for _, mode := range []Mode{ModeRefresh, ModeFirst} {
		pending := async(func() error { return h.c.RequestPage(context.Background(), mode) })
		call := expectFetch(t, h.repo)

		assert.ErrorIs(t, h.c.Poll(context.Background()), ErrPollSkipped)
		assert.ErrorIs(t, h.c.RequestPage(context.Background(), ModePollingRefresh), ErrPollSkipped)
		h.sched.Fire()
		expectNoFetch(t, h.repo, 20*time.Millisecond)

		call.respond(leadPage(1, 1, lead(1, domain.StatusPending)))
		require.NoError(t, waitErr(t, pending))
	}
}

func TestPoll_ReplacesFirstPageSilently(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 1, lead(1, domain.StatusPending), lead(2, domain.StatusPending)))
	before := len(h.rec.snapshots())

	poll := async(func() error { return h.c.Poll(context.Background()) })
	call := expectFetch(t, h.repo)
	assert.Equal(t, 1, call.Page)
	assert.False(t, h.c.Snapshot().Pagination.Busy(), "polls are invisible")
	call.respond(leadPage(1, 1, lead(3, domain.StatusPending), lead(1, domain.StatusContacted)))
	require.NoError(t, waitErr(t, poll))

	snap := h.c.Snapshot()
	assert.Equal(t, []int{3, 1}, leadIDs(snap.Leads))
	assert.Equal(t, domain.StatusContacted, snap.Leads[1].Status)
	assert.False(t, snap.LastPolled.IsZero())
	assert.Greater(t, len(h.rec.snapshots()), before)
}

func TestPoll_KeepsLoadedPagesPastFirstWindow(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 2, lead(1, domain.StatusPending), lead(2, domain.StatusPending)))
	more := async(func() error { return h.c.LoadMore(context.Background()) })
	expectFetch(t, h.repo).respond(leadPage(2, 2, lead(3, domain.StatusPending), lead(4, domain.StatusPending)))
	require.NoError(t, waitErr(t, more))

	poll := async(func() error { return h.c.Poll(context.Background()) })
	expectFetch(t, h.repo).respond(leadPage(1, 3, lead(5, domain.StatusPending), lead(1, domain.StatusPending)))
	require.NoError(t, waitErr(t, poll))

	snap := h.c.Snapshot()
	assert.Equal(t, []int{5, 1, 3, 4}, leadIDs(snap.Leads))
	assert.Equal(t, 2, snap.Pagination.CurrentPage)
	assert.True(t, snap.Pagination.HasNextPage)
}

func TestPoll_DroppedWhenVisibleFetchStartedMeanwhile(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 1, lead(1, domain.StatusPending)))

	poll := async(func() error { return h.c.Poll(context.Background()) })
	pollCall := expectFetch(t, h.repo)

	refresh := async(func() error { return h.c.Refresh(context.Background()) })
	refreshCall := expectFetch(t, h.repo)

	pollCall.respond(leadPage(1, 1, lead(99, domain.StatusPending)))
	require.NoError(t, waitErr(t, poll))
	assert.Equal(t, []int{1}, leadIDs(h.c.Snapshot().Leads), "outdated poll result is discarded")

	refreshCall.respond(leadPage(1, 1, lead(2, domain.StatusPending)))
	require.NoError(t, waitErr(t, refresh))
	assert.Equal(t, []int{2}, leadIDs(h.c.Snapshot().Leads))
}

func TestPoll_FailureIsSilent(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 1, lead(1, domain.StatusPending)))

	poll := async(func() error { return h.c.Poll(context.Background()) })
	expectFetch(t, h.repo).fail(&domain.NetworkError{Op: "fetch leads", Err: errors.New("offline")})
	require.NoError(t, waitErr(t, poll))

	errs, warns := h.rec.reported()
	assert.Empty(t, errs)
	assert.Empty(t, warns)
	assert.Equal(t, []int{1}, leadIDs(h.c.Snapshot().Leads))
	assert.True(t, h.c.LastPolled().IsZero())
}

func TestPoll_DrivenBySchedulerTick(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 1, lead(1, domain.StatusPending)))

	go h.sched.Fire()
	expectFetch(t, h.repo).respond(leadPage(1, 1, lead(1, domain.StatusHired)))

	require.Eventually(t, func() bool {
		l, ok := h.c.Snapshot().Lead(1)
		return ok && l.Status == domain.StatusHired
	}, waitTimeout, 5*time.Millisecond)
}

func TestSnapshotsArePublishedInOrder(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 1, lead(1, domain.StatusPending)))

	snaps := h.rec.snapshots()
	require.NotEmpty(t, snaps)
	for i := 1; i < len(snaps); i++ {
		assert.Greater(t, snaps[i].Version, snaps[i-1].Version)
	}
	last := snaps[len(snaps)-1]
	assert.True(t, last.Loaded)
}

func TestNotificationOpenExpandsLead(t *testing.T) {
	notes := &fakeNotifications{}
	h := newHarness(t, func(o *Options) { o.Notifications = notes })
	h.activate(t, leadPage(1, 1, lead(4, domain.StatusPending)))

	notes.open(4)
	assert.Equal(t, 4, h.c.Snapshot().ExpandedLeadID)

	h.c.SetExpanded(0)
	assert.Equal(t, 0, h.c.Snapshot().ExpandedLeadID)

	h.c.Close()
	notes.mu.Lock()
	defer notes.mu.Unlock()
	assert.True(t, notes.unsubscribed)
}

func TestTeardown_LateFetchIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.activate(t, leadPage(1, 2, lead(1, domain.StatusPending)))

	refresh := async(func() error { return h.c.Refresh(context.Background()) })
	call := expectFetch(t, h.repo)
	before := h.c.Snapshot()
	published := len(h.rec.snapshots())

	h.c.Close()
	call.respond(leadPage(1, 1, lead(50, domain.StatusHired)))
	assert.ErrorIs(t, waitErr(t, refresh), domain.ErrStaleOperation)

	after := h.c.Snapshot()
	assert.Equal(t, leadIDs(before.Leads), leadIDs(after.Leads))
	assert.Equal(t, before.Pagination, after.Pagination)
	assert.Len(t, h.rec.snapshots(), published, "nothing is published after teardown")
	assert.False(t, h.c.Polling())
	assert.ErrorIs(t, h.c.Refresh(context.Background()), ErrClosed)
	assert.ErrorIs(t, h.c.Activate(context.Background()), ErrClosed)
}
