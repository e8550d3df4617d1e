package listsync

import (
	"context"
	"sync"
	"time"
)

// Guard tracks whether the consuming scope is still alive and owns every timer
// and listener registered on its behalf. Close cancels all of them, so nothing
// scheduled through the guard can fire after teardown.
type Guard struct {
	mu      sync.Mutex
	alive   bool
	ctx     context.Context
	cancel  context.CancelFunc
	timers  map[string]*guardTimer
	nextGen uint64
	closers []func()
}

type guardTimer struct {
	timer *time.Timer
	gen   uint64
}

// NewGuard returns a live guard.
func NewGuard() *Guard {
	ctx, cancel := context.WithCancel(context.Background())
	return &Guard{
		alive:  true,
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[string]*guardTimer),
	}
}

// Alive reports whether the scope has not been torn down.
func (g *Guard) Alive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.alive
}

// Context is canceled on Close. Background work started by the engine uses it.
func (g *Guard) Context() context.Context {
	return g.ctx
}

// Schedule runs fn after d under key, canceling any timer pending under the
// same key. fn does not run if the guard is closed or the timer was superseded
// before it fired. Returns false when the guard is already closed.
func (g *Guard) Schedule(key string, d time.Duration, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scheduleLocked(key, d, fn)
}

func (g *Guard) scheduleLocked(key string, d time.Duration, fn func()) bool {
	if !g.alive {
		return false
	}
	if prev, ok := g.timers[key]; ok {
		prev.timer.Stop()
	}
	// generations never repeat, so a callback already past Stop cannot match
	// an entry scheduled after a Cancel
	g.nextGen++
	gen := g.nextGen
	entry := &guardTimer{gen: gen}
	entry.timer = time.AfterFunc(d, func() {
		g.mu.Lock()
		current, ok := g.timers[key]
		if !g.alive || !ok || current.gen != gen {
			g.mu.Unlock()
			return
		}
		delete(g.timers, key)
		g.mu.Unlock()
		fn()
	})
	g.timers[key] = entry
	return true
}

// Cancel stops the timer pending under key, if any.
func (g *Guard) Cancel(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelLocked(key)
}

func (g *Guard) cancelLocked(key string) {
	if t, ok := g.timers[key]; ok {
		t.timer.Stop()
		delete(g.timers, key)
	}
}

// Pending reports whether a timer is scheduled under key.
func (g *Guard) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.timers[key]
	return ok
}

// OnClose registers fn to run on Close, e.g. stopping a poller or removing an
// external listener. If the guard is already closed fn runs immediately.
func (g *Guard) OnClose(fn func()) {
	g.mu.Lock()
	if g.alive {
		g.closers = append(g.closers, fn)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	fn()
}

// Close flips the guard to dead, stops all timers and runs the registered
// closers in reverse order. It is safe to call more than once.
func (g *Guard) Close() {
	g.mu.Lock()
	if !g.alive {
		g.mu.Unlock()
		return
	}
	g.alive = false
	for key, t := range g.timers {
		t.timer.Stop()
		delete(g.timers, key)
	}
	closers := g.closers
	g.closers = nil
	g.mu.Unlock()

	g.cancel()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
