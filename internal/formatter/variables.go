package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cristianoliveira/leadsync/internal/domain"
)

// VariableContext is the data a template line is expanded from.
type VariableContext struct {
	Lead    domain.Lead
	Pending domain.OperationKind // empty when no mutation is in flight
}

// VariableResolver resolves template variables.
type VariableResolver interface {
	Resolve(name string, ctx VariableContext) (string, error)
	Known(name string) bool
	Names() []string
}

type variableResolver struct {
	vars map[string]func(VariableContext) string
}

// NewVariableResolver returns the resolver for lead variables.
func NewVariableResolver() VariableResolver {
	return &variableResolver{vars: map[string]func(VariableContext) string{
		"id":           func(c VariableContext) string { return strconv.Itoa(c.Lead.ID) },
		"name":         func(c VariableContext) string { return c.Lead.FullName() },
		"first-name":   func(c VariableContext) string { return c.Lead.FirstName },
		"last-name":    func(c VariableContext) string { return c.Lead.LastName },
		"type":         func(c VariableContext) string { return c.Lead.Type },
		"status":       func(c VariableContext) string { return c.Lead.Status.String() },
		"status-label": func(c VariableContext) string { return c.Lead.StatusLabel() },
		"status-code":  func(c VariableContext) string { return strconv.Itoa(c.Lead.Status.Code()) },
		"email":        func(c VariableContext) string { return c.Lead.Email },
		"phone":        func(c VariableContext) string { return c.Lead.Phone },
		"assignee": func(c VariableContext) string {
			if !c.Lead.HasAssignee() {
				return ""
			}
			return c.Lead.Assignee.Name
		},
		"assignee-id": func(c VariableContext) string {
			if !c.Lead.HasAssignee() {
				return ""
			}
			return strconv.Itoa(c.Lead.Assignee.ID)
		},
		"created": func(c VariableContext) string { return formatTime(c.Lead.CreatedAt) },
		"updated": func(c VariableContext) string { return formatTime(c.Lead.UpdatedAt) },
		"pending": func(c VariableContext) string { return string(c.Pending) },
	}}
}

func (vr *variableResolver) Resolve(name string, ctx VariableContext) (string, error) {
	fn, ok := vr.vars[name]
	if !ok {
		return "", unknownVariable(name)
	}
	return fn(ctx), nil
}

func (vr *variableResolver) Known(name string) bool {
	_, ok := vr.vars[name]
	return ok
}

// Names returns the variable names, sorted.
func (vr *variableResolver) Names() []string {
	names := make([]string, 0, len(vr.vars))
	for name := range vr.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unknownVariable(name string) error {
	return fmt.Errorf("unknown variable %q (available: %s)", name, strings.Join(NewVariableResolver().Names(), ", "))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
