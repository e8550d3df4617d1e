package listsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// Mode selects how a fetched page is merged into the list.
type Mode int

const (
	// ModeFirst replaces the list with page 1 and shows the initial loading state.
	ModeFirst Mode = iota
	// ModeRefresh replaces the list with page 1 (pull to refresh).
	ModeRefresh
	// ModeLoadMore appends the next page.
	ModeLoadMore
	// ModePollingRefresh silently replaces the page 1 window.
	ModePollingRefresh
)

func (m Mode) String() string {
	switch m {
	case ModeFirst:
		return "first"
	case ModeRefresh:
		return "refresh"
	case ModeLoadMore:
		return "loadMore"
	case ModePollingRefresh:
		return "pollingRefresh"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// RequestPage fetches a page according to mode.
//
// Visible modes are mutually exclusive: while one is in flight another returns
// ErrFetchInFlight without touching the network. A failed first or refresh
// load keeps the leads already displayed; a failed loadMore keeps the loaded
// pages. ModePollingRefresh is the same as Poll.
func (c *Controller) RequestPage(ctx context.Context, mode Mode) error {
	if mode == ModePollingRefresh {
		return c.Poll(ctx)
	}
	return c.fetchVisible(ctx, mode, false)
}

// Refresh is RequestPage(ctx, ModeRefresh).
func (c *Controller) Refresh(ctx context.Context) error {
	return c.RequestPage(ctx, ModeRefresh)
}

// LoadMore is RequestPage(ctx, ModeLoadMore).
func (c *Controller) LoadMore(ctx context.Context) error {
	return c.RequestPage(ctx, ModeLoadMore)
}

// fetchVisible runs one visible fetch. With deferIfBusy a request that finds
// another fetch running is remembered and issued when that fetch completes.
func (c *Controller) fetchVisible(ctx context.Context, mode Mode, deferIfBusy bool) error {
	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.pag.Busy() {
		if deferIfBusy {
			c.deferResyncLocked(mode)
			c.mu.Unlock()
			return errResyncDeferred
		}
		c.mu.Unlock()
		return ErrFetchInFlight
	}
	page := 1
	if mode == ModeLoadMore {
		if !c.loaded || !c.pag.HasNextPage {
			c.mu.Unlock()
			return ErrNoMorePages
		}
		page = c.pag.CurrentPage + 1
	}
	c.setFlagLocked(mode, true)
	c.fetchSeq++
	gen, commits := c.filterGen, c.commitSeq
	filters := c.filters.Clone()
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()

	c.log.Debug("fetching leads", "mode", mode.String(), "page", page)
	result, err := c.repo.FetchLeads(ctx, filters, page, c.opts.PageSize)

	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		c.log.Debug("dropping fetch completion after teardown", "mode", mode.String())
		return domain.ErrStaleOperation
	}
	c.setFlagLocked(mode, false)
	stale := gen != c.filterGen
	switch {
	case stale:
		// filters changed while in flight; the newer filters have a resync queued
		c.log.Debug("dropping fetch for outdated filters", "mode", mode.String())
	case err != nil:
		c.log.Warn("fetch failed", "mode", mode.String(), "page", page, "error", err)
	case mode == ModeLoadMore:
		c.leads = appendPage(c.leads, c.pinLocalLocked(result.Leads, commits))
		c.setPaginationLocked(result.Pagination, page)
	default:
		c.leads = c.pinLocalLocked(result.Leads, commits)
		c.forgetCommitsLocked(commits)
		c.setPaginationLocked(result.Pagination, 1)
		c.loaded = true
		c.lastUpdated = c.now()
	}
	resync, resyncMode := c.takeResyncLocked()
	publish = c.changedLocked()
	c.mu.Unlock()
	publish()

	if resync {
		go c.runResync(resyncMode)
	}
	if stale {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", mode, err)
	}
	if mode != ModeLoadMore {
		c.poller.Start()
	}
	return nil
}

// Poll performs one silent refresh of page 1. It is skipped when any fetch is
// in flight. Failures are logged and never returned. The result is discarded
// if a visible fetch was issued or the filters changed meanwhile.
func (c *Controller) Poll(ctx context.Context) error {
	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.pag.Busy() || c.pag.Polling {
		c.mu.Unlock()
		c.log.Debug("poll skipped, fetch in flight")
		return ErrPollSkipped
	}
	c.pag.Polling = true
	seq, gen, commits := c.fetchSeq, c.filterGen, c.commitSeq
	filters := c.filters.Clone()
	c.mu.Unlock()

	result, err := c.repo.FetchLeads(ctx, filters, 1, c.opts.PageSize)

	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		return nil
	}
	c.pag.Polling = false
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("poll failed", "error", err)
		return nil
	}
	if seq != c.fetchSeq || gen != c.filterGen {
		c.mu.Unlock()
		c.log.Debug("dropping poll result superseded by a newer fetch")
		return nil
	}
	currentPage := c.pag.CurrentPage
	if currentPage < 1 {
		currentPage = 1
	}
	c.leads = mergePollPage(c.leads, c.pinLocalLocked(result.Leads, commits), c.pag.PerPage, currentPage)
	c.forgetCommitsLocked(commits)
	c.setPaginationLocked(result.Pagination, currentPage)
	c.loaded = true
	now := c.now()
	c.lastUpdated = now
	c.poller.MarkPolled(now)
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
	return nil
}

func (c *Controller) setFlagLocked(mode Mode, v bool) {
	switch mode {
	case ModeFirst:
		c.pag.LoadingFirstPage = v
	case ModeRefresh:
		c.pag.Refreshing = v
	case ModeLoadMore:
		c.pag.LoadingMore = v
	}
}

// setPaginationLocked stores server metadata with currentPage as the page the
// list now extends to.
func (c *Controller) setPaginationLocked(p domain.Pagination, currentPage int) {
	c.pag.CurrentPage = currentPage
	c.pag.LastPage = p.LastPage
	c.pag.PerPage = p.PerPage
	c.pag.Total = p.Total
	c.pag.HasNextPage = currentPage < p.LastPage
	c.pag.HasPrevPage = currentPage > 1
}

// pinLocalLocked replaces fetched copies of leads with local state the fetch
// cannot have seen: the optimistic version of a lead with a mutation in flight,
// or the committed version of a lead whose mutation committed after the fetch
// was issued (issued is the commit sequence seen at that time). A fetch never
// visually reverts a user action.
func (c *Controller) pinLocalLocked(leads []domain.Lead, issued uint64) []domain.Lead {
	out := make([]domain.Lead, len(leads))
	for i, l := range leads {
		if patched, ok := c.patched[l.ID]; ok {
			out[i] = patched.Clone()
			continue
		}
		if cl, ok := c.committed[l.ID]; ok && cl.seq > issued {
			out[i] = cl.lead.Clone()
			continue
		}
		out[i] = l.Clone()
	}
	return out
}

func (c *Controller) deferResyncLocked(mode Mode) {
	if !c.resync || mode == ModeFirst {
		c.resyncMode = mode
	}
	c.resync = true
}

func (c *Controller) takeResyncLocked() (bool, Mode) {
	if !c.resync {
		return false, 0
	}
	c.resync = false
	return true, c.resyncMode
}

// runResync issues a fetch that was deferred because another one was running.
func (c *Controller) runResync(mode Mode) {
	err := c.fetchVisible(c.guard.Context(), mode, true)
	switch {
	case err == nil, errors.Is(err, errResyncDeferred), errors.Is(err, ErrClosed),
		errors.Is(err, domain.ErrStaleOperation), errors.Is(err, context.Canceled):
	default:
		c.reportError(domain.UserMessage(err))
	}
}

// appendPage appends next to leads. A lead already in the list (pages shift
// when records are inserted server side) is updated in place instead.
func appendPage(leads, next []domain.Lead) []domain.Lead {
	index := make(map[int]int, len(leads))
	for i, l := range leads {
		index[l.ID] = i
	}
	out := append([]domain.Lead(nil), leads...)
	for _, l := range next {
		if i, ok := index[l.ID]; ok {
			out[i] = l
			continue
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	return out
}

// mergePollPage replaces the page 1 window of leads with page. When only page
// 1 is loaded the list is replaced wholesale; otherwise leads past the window
// are kept unless they now appear in page.
func mergePollPage(leads, page []domain.Lead, perPage, currentPage int) []domain.Lead {
	if currentPage <= 1 {
		return append([]domain.Lead(nil), page...)
	}
	window := perPage
	if window <= 0 || window > len(leads) {
		window = len(leads)
	}
	inPage := make(map[int]bool, len(page))
	for _, l := range page {
		inPage[l.ID] = true
	}
	out := append([]domain.Lead(nil), page...)
	for _, l := range leads[window:] {
		if !inPage[l.ID] {
			out = append(out, l)
		}
	}
	return out
}
