package listsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// Assign assigns the lead to assigneeID.
func (c *Controller) Assign(ctx context.Context, leadID, assigneeID int) error {
	_, err := c.Mutate(ctx, leadID, domain.Mutation{Kind: domain.OpAssign, AssigneeID: assigneeID})
	return err
}

// Unassign clears the lead's assignee.
func (c *Controller) Unassign(ctx context.Context, leadID int) error {
	_, err := c.Mutate(ctx, leadID, domain.Mutation{Kind: domain.OpUnassign})
	return err
}

// ChangeStatus moves the lead to status.
func (c *Controller) ChangeStatus(ctx context.Context, leadID int, status domain.Status) error {
	_, err := c.Mutate(ctx, leadID, domain.Mutation{Kind: domain.OpChangeStatus, Status: status})
	return err
}

// Notify asks the server to notify the lead's assignee and returns the
// server's message. Leads without an assignee are rejected locally.
func (c *Controller) Notify(ctx context.Context, leadID int) (string, error) {
	res, err := c.Mutate(ctx, leadID, domain.Mutation{Kind: domain.OpNotify})
	return res.Message, err
}

// Mutate applies m to the lead optimistically and sends it to the server.
//
// A lead with a mutation already in flight is rejected with a BusyError and no
// request is made. Otherwise the in-memory lead is patched immediately, the
// request is sent and then either the server's copy replaces the patch or, on
// failure, the list is re-fetched from page 1 to drop the patch. Completions
// arriving after Close return domain.ErrStaleOperation and change nothing.
func (c *Controller) Mutate(ctx context.Context, leadID int, m domain.Mutation) (domain.MutationResult, error) {
	if err := m.Validate(); err != nil {
		return domain.MutationResult{}, err
	}

	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		return domain.MutationResult{}, ErrClosed
	}
	if pending, busy := c.ops[leadID]; busy {
		c.mu.Unlock()
		return domain.MutationResult{}, &domain.BusyError{LeadID: leadID, Pending: pending}
	}
	idx := c.indexLocked(leadID)
	if idx < 0 {
		c.mu.Unlock()
		return domain.MutationResult{}, fmt.Errorf("%s lead %d: %w", m.Kind, leadID, domain.ErrLeadNotFound)
	}
	lead := c.leads[idx]
	if m.Kind == domain.OpNotify && !lead.HasAssignee() {
		c.mu.Unlock()
		return domain.MutationResult{}, &domain.NoAssigneeError{LeadID: leadID}
	}
	c.ops[leadID] = m.Kind
	if patched, ok := c.optimisticPatchLocked(lead, m); ok {
		c.leads[idx] = patched
		c.patched[leadID] = patched.Clone()
	}
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()

	c.log.Debug("mutation sent", "lead_id", leadID, "op", m.Kind.String())
	res, err := c.repo.MutateLead(ctx, leadID, m)

	c.mu.Lock()
	if !c.guard.Alive() {
		c.mu.Unlock()
		c.log.Debug("dropping mutation completion after teardown", "lead_id", leadID)
		return domain.MutationResult{}, domain.ErrStaleOperation
	}
	delete(c.ops, leadID)
	delete(c.patched, leadID)
	if err == nil && res.Lead != nil && res.Lead.ID == leadID {
		if i := c.indexLocked(leadID); i >= 0 {
			c.leads[i] = res.Lead.Clone()
		}
	}
	if err == nil && m.Kind != domain.OpNotify {
		c.recordCommitLocked(leadID)
	}
	publish = c.changedLocked()
	c.mu.Unlock()
	publish()

	if err != nil {
		c.log.Warn("mutation failed, resynchronizing", "lead_id", leadID, "op", m.Kind.String(), "error", err)
		if m.Kind != domain.OpNotify {
			c.rollback()
		}
		return domain.MutationResult{}, fmt.Errorf("%s lead %d: %w", m.Kind, leadID, err)
	}
	c.log.Info("mutation committed", "lead_id", leadID, "op", m.Kind.String())
	return res, nil
}

// PendingOperation returns the mutation in flight for leadID, if any.
func (c *Controller) PendingOperation(leadID int) (domain.OperationKind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.ops[leadID]
	return k, ok
}

// rollback re-fetches page 1 to discard a failed optimistic patch. If a fetch
// is already running the refresh is issued as soon as it completes.
func (c *Controller) rollback() {
	err := c.fetchVisible(c.guard.Context(), ModeRefresh, true)
	switch {
	case err == nil, errors.Is(err, errResyncDeferred), errors.Is(err, ErrClosed),
		errors.Is(err, domain.ErrStaleOperation):
	default:
		c.reportError("Could not reload leads: " + domain.UserMessage(err))
	}
}

// optimisticPatchLocked returns the lead as it is expected to look once m
// succeeds. Notify changes no lead data and returns false.
func (c *Controller) optimisticPatchLocked(lead domain.Lead, m domain.Mutation) (domain.Lead, bool) {
	patched := lead.Clone()
	switch m.Kind {
	case domain.OpAssign:
		patched.Assignee = &domain.Assignee{ID: m.AssigneeID, Name: c.assigneeNameLocked(m.AssigneeID, lead)}
	case domain.OpUnassign:
		patched.Assignee = nil
	case domain.OpChangeStatus:
		patched.Status = m.Status
	default:
		return lead, false
	}
	return patched, true
}

func (c *Controller) assigneeNameLocked(id int, lead domain.Lead) string {
	for _, a := range c.assignees {
		if a.ID == id {
			return a.Name
		}
	}
	if lead.Assignee != nil && lead.Assignee.ID == id {
		return lead.Assignee.Name
	}
	return ""
}

// committedLead is the local copy of a lead as of a committed mutation.
type committedLead struct {
	seq  uint64
	lead domain.Lead
}

// recordCommitLocked remembers the lead as it stands after a commit. Fetches
// issued before the commit keep this copy instead of the older server data
// they carry.
func (c *Controller) recordCommitLocked(leadID int) {
	i := c.indexLocked(leadID)
	if i < 0 {
		return
	}
	c.commitSeq++
	c.committed[leadID] = committedLead{seq: c.commitSeq, lead: c.leads[i].Clone()}
}

// forgetCommitsLocked drops commits already observed by a fetch issued when
// the commit sequence was issued.
func (c *Controller) forgetCommitsLocked(issued uint64) {
	for id, cl := range c.committed {
		if cl.seq <= issued {
			delete(c.committed, id)
		}
	}
}
