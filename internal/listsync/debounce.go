package listsync

import (
	"sync"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

const debounceKey = "filters.debounce"

// DefaultDebounceDelay is the quiet period before a filter change is applied.
const DefaultDebounceDelay = 500 * time.Millisecond

// Debouncer collapses a burst of filter changes into one apply call carrying
// the last value. Its timer is owned by the guard, so closing the guard drops
// any pending apply.
type Debouncer struct {
	guard *Guard
	delay time.Duration
	apply func(domain.FilterState)

	mu      sync.Mutex
	pending *domain.FilterState
}

// NewDebouncer creates a debouncer that calls apply after delay of quiet.
func NewDebouncer(guard *Guard, delay time.Duration, apply func(domain.FilterState)) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer{guard: guard, delay: delay, apply: apply}
}

// Push records a new filter state and restarts the quiet period. An empty
// search term is an ordinary value and is debounced like any other.
func (d *Debouncer) Push(f domain.FilterState) {
	d.mu.Lock()
	next := f.Clone()
	d.pending = &next
	d.mu.Unlock()

	d.guard.Schedule(debounceKey, d.delay, func() { d.fire() })
}

// Pending returns the filter state waiting to be applied, if any.
func (d *Debouncer) Pending() (domain.FilterState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return domain.FilterState{}, false
	}
	return d.pending.Clone(), true
}

// Flush applies the pending value immediately, canceling the timer.
func (d *Debouncer) Flush() bool {
	d.guard.Cancel(debounceKey)
	return d.fire()
}

// Cancel drops the pending value without applying it.
func (d *Debouncer) Cancel() {
	d.guard.Cancel(debounceKey)
	d.mu.Lock()
	d.pending = nil
	d.mu.Unlock()
}

func (d *Debouncer) fire() bool {
	d.mu.Lock()
	f := d.pending
	d.pending = nil
	d.mu.Unlock()
	if f == nil || !d.guard.Alive() {
		return false
	}
	d.apply(*f)
	return true
}
