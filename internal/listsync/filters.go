package listsync

import (
	"errors"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// SetSearch replaces the search term after the debounce delay.
func (c *Controller) SetSearch(term string) {
	c.pushFilters(func(f domain.FilterState) domain.FilterState { return f.WithSearch(term) })
}

// SetStatusFilter replaces the status filter after the debounce delay.
// domain.StatusAll clears it.
func (c *Controller) SetStatusFilter(status domain.Status) {
	c.pushFilters(func(f domain.FilterState) domain.FilterState { return f.WithStatus(status) })
}

// SetPredicates replaces the advanced predicates after the debounce delay.
func (c *Controller) SetPredicates(preds []domain.Predicate) {
	c.pushFilters(func(f domain.FilterState) domain.FilterState { return f.WithPredicates(preds) })
}

// ApplyFilters replaces the whole filter state after the debounce delay.
func (c *Controller) ApplyFilters(f domain.FilterState) {
	c.debouncer.Push(f)
}

// FlushFilters applies a pending filter change now instead of waiting for
// the debounce delay. It reports whether there was one.
func (c *Controller) FlushFilters() bool {
	return c.debouncer.Flush()
}

// Filters returns the filter state including a change still being debounced.
func (c *Controller) Filters() domain.FilterState {
	if f, ok := c.debouncer.Pending(); ok {
		return f
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters.Clone()
}

// pushFilters derives the next filter state from the latest one, pending or
// applied, so quick successive edits of different controls compose.
func (c *Controller) pushFilters(modify func(domain.FilterState) domain.FilterState) {
	c.debouncer.Push(modify(c.Filters()))
}

// applyFilters is the debounce callback. It swaps the filter state, reloads
// page 1 and restarts the poller so the next poll is a full interval away.
func (c *Controller) applyFilters(f domain.FilterState) {
	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		return
	}
	if c.loaded && f.Equal(c.filters) {
		c.mu.Unlock()
		return
	}
	c.filters = f.Clone()
	c.filterGen++
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()

	c.log.Debug("filters applied", "search", f.SearchTerm(), "status", f.Status.String(), "predicates", len(f.Predicates))
	err := c.fetchVisible(c.guard.Context(), ModeFirst, true)
	switch {
	case err == nil:
		if c.poller.Running() {
			c.poller.Restart()
		}
	case errors.Is(err, errResyncDeferred), errors.Is(err, ErrClosed), errors.Is(err, domain.ErrStaleOperation):
	default:
		c.reportError(domain.UserMessage(err))
	}
}
