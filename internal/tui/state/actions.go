package state

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/leadsync/internal/domain"
)

// The controller applies optimistic patches and publishes snapshots itself;
// these commands only carry the final outcome back to the model.

func (m *Model) assignSelected(index int) tea.Cmd {
	l, ok := m.selectedLead()
	if !ok || index < 0 || index >= len(m.snap.Assignees) {
		return nil
	}
	assignee := m.snap.Assignees[index]
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		err := list.Assign(ctx, l.ID, assignee.ID)
		return actionDoneMsg{
			kind:    domain.OpAssign,
			leadID:  l.ID,
			message: fmt.Sprintf("Lead #%d assigned to %s", l.ID, assignee.Name),
			err:     err,
		}
	}
}

func (m *Model) unassignSelected() tea.Cmd {
	l, ok := m.selectedLead()
	if !ok {
		return nil
	}
	if !l.HasAssignee() {
		m.errorHandler.Info(fmt.Sprintf("Lead #%d has no assignee", l.ID))
		return nil
	}
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		err := list.Unassign(ctx, l.ID)
		return actionDoneMsg{
			kind:    domain.OpUnassign,
			leadID:  l.ID,
			message: fmt.Sprintf("Lead #%d unassigned", l.ID),
			err:     err,
		}
	}
}

func (m *Model) changeSelectedStatus(index int) tea.Cmd {
	l, ok := m.selectedLead()
	statuses := domain.Statuses()
	if !ok || index < 0 || index >= len(statuses) {
		return nil
	}
	status := statuses[index]
	if status == l.Status {
		return nil
	}
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		err := list.ChangeStatus(ctx, l.ID, status)
		return actionDoneMsg{
			kind:    domain.OpChangeStatus,
			leadID:  l.ID,
			message: fmt.Sprintf("Lead #%d is now %s", l.ID, status.Label()),
			err:     err,
		}
	}
}

func (m *Model) notifySelected() tea.Cmd {
	l, ok := m.selectedLead()
	if !ok {
		return nil
	}
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		message, err := list.Notify(ctx, l.ID)
		if message == "" {
			message = fmt.Sprintf("Assignee of lead #%d notified", l.ID)
		}
		return actionDoneMsg{kind: domain.OpNotify, leadID: l.ID, message: message, err: err}
	}
}

func (m *Model) loadMore() tea.Cmd {
	if !m.snap.Pagination.HasNextPage {
		m.errorHandler.Info("All leads are loaded")
		return nil
	}
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		return actionDoneMsg{err: list.LoadMore(ctx)}
	}
}

func (m *Model) refresh() tea.Cmd {
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		return actionDoneMsg{err: list.Refresh(ctx)}
	}
}
