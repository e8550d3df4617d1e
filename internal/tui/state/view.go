package state

import (
	"strings"

	"github.com/cristianoliveira/leadsync/internal/format"
	"github.com/cristianoliveira/leadsync/internal/tui/render"
)

// View renders the TUI.
func (m *Model) View() string {
	var s strings.Builder

	s.WriteString(render.Title(m.list.Filters(), m.busyLabel()))
	s.WriteString("\n")
	s.WriteString(render.Header(m.width))
	s.WriteString("\n")

	switch m.mode {
	case modeAssign:
		s.WriteString(render.Picker("Assign lead to", m.pickerOptions(), m.picker))
	case modeStatus:
		s.WriteString(render.Picker("Set status", m.pickerOptions(), m.picker))
	default:
		s.WriteString(m.viewport.View())
	}

	s.WriteString("\n")
	if msg, ok := m.errorHandler.Current(messageDuration); ok {
		s.WriteString(render.Message(msg.Text, msg.Type.String()))
	}
	s.WriteString("\n")
	s.WriteString(render.Footer(render.FooterState{
		Mode:        m.mode.String(),
		SearchInput: m.search.Value(),
		Summary:     render.Summary(len(m.snap.Leads), m.snap.Pagination.Pagination),
		Updated:     format.Ago(m.list.UpdatedAgo(m.now())),
		Width:       m.width,
	}))
	if m.mode == modeSearch {
		s.WriteString("\n")
		s.WriteString(m.search.View())
	}
	return s.String()
}

func (m *Model) busyLabel() string {
	p := m.snap.Pagination
	var label string
	switch {
	case p.LoadingFirstPage:
		label = "loading"
	case p.Refreshing:
		label = "refreshing"
	case p.LoadingMore:
		label = "loading more"
	default:
		return ""
	}
	return m.spinner.View() + " " + label
}

// updateViewportContent renders the rows and keeps the cursor visible.
func (m *Model) updateViewportContent() {
	if len(m.snap.Leads) == 0 {
		m.viewport.SetContent(render.Empty(m.snap.Loaded))
		m.viewport.GotoTop()
		return
	}

	var content strings.Builder
	now := m.now()
	cursorLine := 0
	line := 0
	for i, l := range m.snap.Leads {
		if i > 0 {
			content.WriteString("\n")
		}
		if i == m.cursor {
			cursorLine = line
		}
		pending := m.snap.Pending[l.ID]
		expanded := m.snap.ExpandedLeadID == l.ID
		content.WriteString(render.Row(render.RowState{
			Lead:     l,
			Pending:  pending,
			Width:    m.width,
			Selected: i == m.cursor,
			Expanded: expanded,
			Now:      now,
		}))
		line++
		if expanded {
			for _, detail := range render.Detail(l, pending) {
				content.WriteString("\n")
				content.WriteString(detail)
				line++
			}
		}
	}
	m.viewport.SetContent(content.String())

	if cursorLine < m.viewport.YOffset {
		m.viewport.SetYOffset(cursorLine)
	} else if cursorLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(cursorLine - m.viewport.Height + 1)
	}
}
