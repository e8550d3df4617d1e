package state

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/listsync"
)

// SnapshotMsg carries the latest lead list state into the program.
type SnapshotMsg struct {
	Snapshot listsync.Snapshot
}

// wakeMsg re-renders after a message was added to the error handler.
type wakeMsg struct{}

// tickMsg refreshes the "updated ... ago" label.
type tickMsg time.Time

// actionDoneMsg is sent when a lead operation started from the TUI returns.
type actionDoneMsg struct {
	kind    domain.OperationKind
	leadID  int
	message string
	err     error
}

// Inbox hands controller updates to the bubbletea program without ever
// blocking the controller. Only the newest snapshot is kept.
type Inbox struct {
	mu     sync.Mutex
	latest *listsync.Snapshot
	signal chan struct{}
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{signal: make(chan struct{}, 1)}
}

// Publish stores s and wakes the program. It is meant for
// listsync.Options.OnChange.
func (in *Inbox) Publish(s listsync.Snapshot) {
	in.mu.Lock()
	if in.latest == nil || s.Version >= in.latest.Version {
		in.latest = &s
	}
	in.mu.Unlock()
	in.notify()
}

// Wake re-renders the program without a new snapshot.
func (in *Inbox) Wake() {
	in.notify()
}

func (in *Inbox) notify() {
	select {
	case in.signal <- struct{}{}:
	default:
	}
}

// Wait returns a command that blocks until the inbox has something.
func (in *Inbox) Wait() tea.Cmd {
	return func() tea.Msg {
		<-in.signal
		return in.take()
	}
}

func (in *Inbox) take() tea.Msg {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.latest != nil {
		s := *in.latest
		in.latest = nil
		return SnapshotMsg{Snapshot: s}
	}
	return wakeMsg{}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}
