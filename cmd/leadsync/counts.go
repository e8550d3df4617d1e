package main

import (
	"fmt"

	"github.com/cristianoliveira/leadsync/internal/status"
	"github.com/spf13/cobra"
)

// NewCountsCmd creates the counts command.
func NewCountsCmd(a *app) *cobra.Command {
	var (
		search, formatName string
		predicates         []string
		tmux               bool
	)

	countsCmd := &cobra.Command{
		Use:   "counts",
		Short: "Print how many leads are in each status",
		Long: `Print a one-line summary of leads per status, suitable for a shell
prompt or tmux status bar. Prints nothing when no lead matches.

Formats: compact (default, from status_format), detailed, count-only.

Example for tmux:
    set -g status-right '#(leadsync counts --tmux)'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(search, "", predicates)
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			counts, err := status.Count(cmd.Context(), repo, filters)
			if err != nil {
				return err
			}
			line, err := status.Render(counts, status.Options{Format: formatName, Tmux: tmux})
			if err != nil || line == "" {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
			return err
		},
	}

	flags := countsCmd.Flags()
	flags.StringVar(&search, "search", "", "Search name, email and phone")
	flags.StringArrayVar(&predicates, "filter", nil, "Extra predicate field:operator:value (repeatable)")
	flags.StringVar(&formatName, "format", "", "Output format: compact, detailed, count-only")
	flags.BoolVar(&tmux, "tmux", false, "Color counts with tmux #[fg=...] markup")
	return countsCmd
}
