package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/domain"
	"github.com/cristianoliveira/leadsync/internal/hooks"
	"github.com/cristianoliveira/leadsync/internal/listsync"
	"github.com/spf13/cobra"
)

// NewAssignCmd creates the assign command.
func NewAssignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <lead-id> <assignee>",
		Short: "Assign a lead to someone (ID or name)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := parseLeadID(args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			assignee, err := resolveAssignee(cmd.Context(), repo, args[1])
			if err != nil {
				return err
			}
			res, err := repo.MutateLead(cmd.Context(), leadID, domain.Mutation{Kind: domain.OpAssign, AssigneeID: assignee.ID})
			if err != nil {
				return err
			}
			colors.Success(resultMessage(res, fmt.Sprintf("Lead #%d assigned to %s", leadID, assignee.Name)))
			return a.runMutationHooks(cmd.Context(), domain.OpAssign, leadID, res)
		},
	}
}

// NewUnassignCmd creates the unassign command.
func NewUnassignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <lead-id>",
		Short: "Remove the assignee of a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd.Context(), a, args[0], domain.Mutation{Kind: domain.OpUnassign}, "Lead #%d unassigned")
		},
	}
}

// NewStatusCmd creates the status command.
func NewStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <lead-id> <status>",
		Short: "Move a lead to another status",
		Long: `Move a lead to another status.

Statuses: pending, assigned, contacted, not_relevant, meeting_arranged, hired.
Display labels ("Meeting arranged") and legacy codes (0-5) are accepted too.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}
			m := domain.Mutation{Kind: domain.OpChangeStatus, Status: status}
			return mutate(cmd.Context(), a, args[0], m, "Lead #%d is now "+status.Label())
		},
	}
}

// NewNotifyCmd creates the notify command.
func NewNotifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <lead-id>",
		Short: "Notify the assignee of a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd.Context(), a, args[0], domain.Mutation{Kind: domain.OpNotify}, "Assignee of lead #%d notified")
		},
	}
}

func mutate(ctx context.Context, a *app, rawID string, m domain.Mutation, successFormat string) error {
	leadID, err := parseLeadID(rawID)
	if err != nil {
		return err
	}
	repo, err := a.repository()
	if err != nil {
		return err
	}
	res, err := repo.MutateLead(ctx, leadID, m)
	if err != nil {
		return err
	}
	colors.Success(resultMessage(res, fmt.Sprintf(successFormat, leadID)))
	return a.runMutationHooks(ctx, m.Kind, leadID, res)
}

// runMutationHooks runs the post-* hooks with the lead the server returned,
// or just its ID when the response carried no record.
func (a *app) runMutationHooks(ctx context.Context, kind domain.OperationKind, leadID int, res domain.MutationResult) error {
	lead := domain.Lead{ID: leadID}
	if res.Lead != nil {
		lead = *res.Lead
	}
	runner := a.hookRunner()
	defer runner.Wait()
	return runner.RunLead(ctx, hooks.PointFor(kind), lead)
}

// resultMessage prefers the server's message.
func resultMessage(res domain.MutationResult, fallback string) string {
	if res.Message != "" {
		return res.Message
	}
	return fallback
}

func parseLeadID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lead ID: %q", raw)
	}
	return id, nil
}

// resolveAssignee matches ref against the directory by ID, then by exact
// name, then by a unique name prefix (case-insensitive).
func resolveAssignee(ctx context.Context, repo listsync.Repository, ref string) (domain.Assignee, error) {
	assignees, err := repo.ListAssignees(ctx)
	if err != nil {
		return domain.Assignee{}, fmt.Errorf("load assignees: %w", err)
	}
	if id, err := strconv.Atoi(ref); err == nil {
		for _, as := range assignees {
			if as.ID == id {
				return as, nil
			}
		}
		return domain.Assignee{}, fmt.Errorf("no assignee with ID %d", id)
	}
	var prefixed []domain.Assignee
	for _, as := range assignees {
		if strings.EqualFold(as.Name, ref) {
			return as, nil
		}
		if strings.HasPrefix(strings.ToLower(as.Name), strings.ToLower(ref)) {
			prefixed = append(prefixed, as)
		}
	}
	switch len(prefixed) {
	case 1:
		return prefixed[0], nil
	case 0:
		return domain.Assignee{}, fmt.Errorf("no assignee named %q", ref)
	default:
		names := make([]string, len(prefixed))
		for i, as := range prefixed {
			names[i] = as.Name
		}
		return domain.Assignee{}, fmt.Errorf("%q matches several assignees: %s", ref, strings.Join(names, ", "))
	}
}

// NewAssigneesCmd creates the assignees command.
func NewAssigneesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assignees",
		Short: "List the people leads can be assigned to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			assignees, err := repo.ListAssignees(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(assignees) == 0 {
				_, err := fmt.Fprintln(w, "No assignees found")
				return err
			}
			for _, as := range assignees {
				if _, err := fmt.Fprintf(w, "%-6d %s\n", as.ID, as.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
