package listsync

import (
	"sync"
	"time"

	"github.com/cristianoliveira/leadsync/internal/logging"
	"github.com/robfig/cron/v3"
)

// DefaultPollInterval is how often the first page is silently re-fetched.
const DefaultPollInterval = 20 * time.Second

// Scheduler runs tick every interval until the returned stop function is called.
type Scheduler interface {
	Start(interval time.Duration, tick func()) (stop func())
}

// CronScheduler schedules ticks with robfig/cron. A tick that is still running
// when the next one is due is skipped, not queued.
type CronScheduler struct {
	Logger logging.Logger
}

// Start implements Scheduler. cron.Every has one second granularity, so
// shorter intervals run on a time.Ticker through the same job chain.
func (s CronScheduler) Start(interval time.Duration, tick func()) func() {
	logger := cronLogger{log: s.Logger}
	if logger.log == nil {
		logger.log = logging.Noop()
	}
	// Recover sits inside SkipIfStillRunning so a panicking tick still frees its slot
	chain := []cron.JobWrapper{cron.SkipIfStillRunning(logger), cron.Recover(logger)}
	if interval < time.Second {
		return startTicker(interval, cron.NewChain(chain...).Then(cron.FuncJob(tick)))
	}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(chain...))
	c.Schedule(cron.Every(interval), cron.FuncJob(tick))
	c.Start()
	return func() { c.Stop() }
}

// startTicker runs job every interval, each run on its own goroutine like
// cron does.
func startTicker(interval time.Duration, job cron.Job) func() {
	t := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				go job.Run()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Poller periodically invokes a silent refresh. It is stopped by the guard on
// teardown and can be restarted, e.g. after a filter change.
type Poller struct {
	guard    *Guard
	sched    Scheduler
	interval time.Duration
	tick     func()

	mu         sync.Mutex
	stop       func()
	lastPolled time.Time
}

// NewPoller creates a stopped poller.
func NewPoller(guard *Guard, sched Scheduler, interval time.Duration, tick func()) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller{guard: guard, sched: sched, interval: interval, tick: tick}
	guard.OnClose(p.Stop)
	return p
}

// Start begins polling unless already running or the guard is closed.
func (p *Poller) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil || !p.guard.Alive() {
		return false
	}
	p.stop = p.sched.Start(p.interval, func() {
		if p.guard.Alive() {
			p.tick()
		}
	})
	return true
}

// Stop stops polling. It is a no-op when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Restart stops and starts the poller so the next tick is a full interval away.
func (p *Poller) Restart() bool {
	p.Stop()
	return p.Start()
}

// Running reports whether the poller is scheduled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// MarkPolled records a successful poll.
func (p *Poller) MarkPolled(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPolled = t
}

// LastPolled returns the time of the last successful poll, or zero.
func (p *Poller) LastPolled() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPolled
}
