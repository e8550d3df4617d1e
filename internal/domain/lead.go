// Package domain provides the domain layer for leads.
// It contains the lead record, filter and pagination value objects, and the
// error taxonomy shared by the API client and the list synchronization engine.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Assignee is a candidate owner of a lead.
type Assignee struct {
	ID   int
	Name string
}

// Lead is a cached copy of a server-owned lead record.
type Lead struct {
	ID        int
	Type      string
	Status    Status // may hold an unknown server value verbatim
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Assignee  *Assignee
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns the lead's display name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// HasAssignee reports whether the lead is assigned to someone.
func (l Lead) HasAssignee() bool {
	return l.Assignee != nil && l.Assignee.ID != 0
}

// StatusLabel returns the display label, or the raw value for unknown statuses.
func (l Lead) StatusLabel() string {
	return l.Status.Label()
}

// Clone returns a deep copy of the lead.
func (l Lead) Clone() Lead {
	if l.Assignee != nil {
		a := *l.Assignee
		l.Assignee = &a
	}
	return l
}

// Validate checks the invariants a lead must hold once decoded.
func (l Lead) Validate() error {
	if l.ID <= 0 {
		return fmt.Errorf("invalid lead ID: %d", l.ID)
	}
	return nil
}

// Pagination is the pagination metadata returned with a page of leads.
type Pagination struct {
	CurrentPage int
	LastPage    int
	PerPage     int
	Total       int
	HasNextPage bool
	HasPrevPage bool
}

// LeadPage is one page of leads with its pagination metadata.
type LeadPage struct {
	Leads      []Lead
	Pagination Pagination
}

// OperationKind identifies a lead mutation.
type OperationKind string

const (
	OpAssign       OperationKind = "assign"
	OpUnassign     OperationKind = "unassign"
	OpChangeStatus OperationKind = "change_status"
	OpNotify       OperationKind = "notify"
)

// IsValid checks if the operation kind is known.
func (k OperationKind) IsValid() bool {
	switch k {
	case OpAssign, OpUnassign, OpChangeStatus, OpNotify:
		return true
	default:
		return false
	}
}

// String returns the string representation of the operation kind.
func (k OperationKind) String() string {
	return string(k)
}

// Mutation is a request to change a lead on the server.
type Mutation struct {
	Kind       OperationKind
	AssigneeID int    // OpAssign
	Status     Status // OpChangeStatus
}

// Validate checks the mutation payload matches its kind.
func (m Mutation) Validate() error {
	switch m.Kind {
	case OpAssign:
		if m.AssigneeID <= 0 {
			return fmt.Errorf("invalid assignee ID: %d", m.AssigneeID)
		}
	case OpChangeStatus:
		if !m.Status.IsValid() {
			return fmt.Errorf("invalid status: %q", m.Status)
		}
	case OpUnassign, OpNotify:
	default:
		return fmt.Errorf("invalid operation: %q", m.Kind)
	}
	return nil
}

// MutationResult is the server's answer to a mutation. Lead is nil for notify.
type MutationResult struct {
	Lead    *Lead
	Message string
}
