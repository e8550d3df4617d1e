package state

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/leadsync/internal/domain"
)

type keyMap struct {
	Up, Down, Top, Bottom key.Binding
	Expand                key.Binding
	Search                key.Binding
	CycleStatus           key.Binding
	Assign                key.Binding
	Unassign              key.Binding
	SetStatus             key.Binding
	Notify                key.Binding
	LoadMore              key.Binding
	Refresh               key.Binding
	Quit                  key.Binding
	Confirm, Cancel       key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("k", "up")),
	Down:        key.NewBinding(key.WithKeys("j", "down")),
	Top:         key.NewBinding(key.WithKeys("g", "home")),
	Bottom:      key.NewBinding(key.WithKeys("G", "end")),
	Expand:      key.NewBinding(key.WithKeys("enter", " ")),
	Search:      key.NewBinding(key.WithKeys("/")),
	CycleStatus: key.NewBinding(key.WithKeys("s")),
	Assign:      key.NewBinding(key.WithKeys("a")),
	Unassign:    key.NewBinding(key.WithKeys("u")),
	SetStatus:   key.NewBinding(key.WithKeys("t")),
	Notify:      key.NewBinding(key.WithKeys("n")),
	LoadMore:    key.NewBinding(key.WithKeys("m")),
	Refresh:     key.NewBinding(key.WithKeys("r", "ctrl+r")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Confirm:     key.NewBinding(key.WithKeys("enter")),
	Cancel:      key.NewBinding(key.WithKeys("esc")),
}

// handleKeyMsg processes keyboard input for the TUI.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeAssign, modeStatus:
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		return m, m.moveCursor(1)
	case key.Matches(msg, keys.Top):
		m.cursor = 0
		m.updateViewportContent()
	case key.Matches(msg, keys.Bottom):
		m.cursor = len(m.snap.Leads) - 1
		m.clampCursor()
		m.updateViewportContent()
	case key.Matches(msg, keys.Expand):
		m.toggleExpanded()
	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, keys.CycleStatus):
		m.list.SetStatusFilter(nextStatusFilter(m.list.Filters().Status))
	case key.Matches(msg, keys.Assign):
		m.openAssignPicker()
	case key.Matches(msg, keys.Unassign):
		return m, m.unassignSelected()
	case key.Matches(msg, keys.SetStatus):
		m.openStatusPicker()
	case key.Matches(msg, keys.Notify):
		return m, m.notifySelected()
	case key.Matches(msg, keys.LoadMore):
		return m, m.loadMore()
	case key.Matches(msg, keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, keys.Cancel):
		m.errorHandler.Clear()
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Confirm):
		m.mode = modeNormal
		m.search.Blur()
		return m, nil
	case key.Matches(msg, keys.Cancel):
		m.mode = modeNormal
		m.search.Blur()
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.list.SetSearch("")
		}
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if after := m.search.Value(); after != before {
		m.list.SetSearch(after)
	}
	return m, cmd
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	options := m.pickerOptions()
	switch {
	case key.Matches(msg, keys.Cancel), key.Matches(msg, keys.Quit):
		m.mode = modeNormal
	case key.Matches(msg, keys.Up):
		if m.picker > 0 {
			m.picker--
		}
	case key.Matches(msg, keys.Down):
		if m.picker < len(options)-1 {
			m.picker++
		}
	case key.Matches(msg, keys.Confirm):
		chosen := m.mode
		m.mode = modeNormal
		if chosen == modeAssign {
			return m, m.assignSelected(m.picker)
		}
		return m, m.changeSelectedStatus(m.picker)
	}
	return m, nil
}

// moveCursor moves the selection and asks for the next page when it
// reaches the last loaded lead.
func (m *Model) moveCursor(delta int) tea.Cmd {
	m.cursor += delta
	m.clampCursor()
	m.updateViewportContent()
	if delta > 0 && m.cursor == len(m.snap.Leads)-1 && m.snap.Pagination.HasNextPage && !m.snap.Pagination.Busy() {
		return m.loadMore()
	}
	return nil
}

func (m *Model) toggleExpanded() {
	l, ok := m.selectedLead()
	if !ok {
		return
	}
	if m.snap.ExpandedLeadID == l.ID {
		m.list.SetExpanded(0)
		return
	}
	m.list.SetExpanded(l.ID)
}

func (m *Model) openAssignPicker() {
	l, ok := m.selectedLead()
	if !ok {
		return
	}
	if len(m.snap.Assignees) == 0 {
		m.errorHandler.Warning("No assignees available")
		return
	}
	m.picker = 0
	if l.HasAssignee() {
		for i, a := range m.snap.Assignees {
			if a.ID == l.Assignee.ID {
				m.picker = i
			}
		}
	}
	m.mode = modeAssign
}

func (m *Model) openStatusPicker() {
	l, ok := m.selectedLead()
	if !ok {
		return
	}
	m.picker = 0
	if code := l.Status.Code(); code >= 0 {
		m.picker = code
	}
	m.mode = modeStatus
}

func (m *Model) pickerOptions() []string {
	if m.mode == modeAssign {
		out := make([]string, len(m.snap.Assignees))
		for i, a := range m.snap.Assignees {
			out[i] = fmt.Sprintf("%s (#%d)", a.Name, a.ID)
		}
		return out
	}
	statuses := domain.Statuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.Label()
	}
	return out
}

// nextStatusFilter cycles all → each status in pipeline order → all.
func nextStatusFilter(current domain.Status) domain.Status {
	statuses := domain.Statuses()
	if current == domain.StatusAll {
		return statuses[0]
	}
	code := current.Code()
	if code < 0 || code == len(statuses)-1 {
		return domain.StatusAll
	}
	return statuses[code+1]
}
