package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/leadsync/internal/errors"
	"github.com/cristianoliveira/leadsync/internal/listsync"
	"github.com/cristianoliveira/leadsync/internal/tui/state"
	"github.com/spf13/cobra"
)

// NewTUICmd creates the tui command.
func NewTUICmd(a *app) *cobra.Command {
	var search, status string

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive lead list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			opts, err := controllerOptions()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("search") || cmd.Flags().Changed("status") {
				filters, err := parseFilters(search, status, nil)
				if err != nil {
					return err
				}
				opts.InitialFilters = filters
			}
			return runTUI(cmd.Context(), repo, opts, tea.WithAltScreen())
		},
	}
	tuiCmd.Flags().StringVar(&search, "search", "", "Initial search term")
	tuiCmd.Flags().StringVar(&status, "status", "", "Initial status filter")
	return tuiCmd
}

func runTUI(ctx context.Context, repo listsync.Repository, opts listsync.Options, programOpts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inbox := state.NewInbox()
	handler := errors.NewTUIHandler(func(errors.Message) { inbox.Wake() })
	opts.Reporter = handler
	opts.OnChange = inbox.Publish

	ctrl := listsync.New(repo, opts)
	defer ctrl.Close()

	go func() {
		// failures reach the status bar through the reporter
		if err := ctrl.Activate(ctx); err != nil {
			errors.Handle(handler, err)
		}
	}()

	model := state.NewModel(ctx, ctrl, inbox, handler)
	_, err := tea.NewProgram(model, append(programOpts, tea.WithContext(ctx))...).Run()
	return err
}
