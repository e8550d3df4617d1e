package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cristianoliveira/leadsync/internal/version"
	"github.com/spf13/cobra"
)

// commandOrder is the order commands appear in the help text.
var commandOrder = []string{
	"list",
	"watch",
	"tui",
	"assign",
	"unassign",
	"status",
	"notify",
	"assignees",
	"counts",
	"mock-server",
	"config",
	"version",
}

// NewRootCmd creates the leadsync command tree.
func NewRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "leadsync",
		Short:         "Browse and triage leads from the terminal.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.HiddenDefaultCmd = true

	// defaults keep whatever the app was built with
	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "api-url", a.baseURL, "Lead API base URL (overrides api_base_url)")
	flags.StringVar(&a.token, "token", a.token, "API bearer token (overrides api_token)")

	root.AddCommand(
		NewListCmd(a),
		NewWatchCmd(a),
		NewTUICmd(a),
		NewAssignCmd(a),
		NewUnassignCmd(a),
		NewStatusCmd(a),
		NewNotifyCmd(a),
		NewAssigneesCmd(a),
		NewCountsCmd(a),
		NewMockServerCmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	)

	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			return
		}
		printHelp(cmd, cmd.OutOrStdout())
	})
	return root
}

func printHelp(cmd *cobra.Command, w io.Writer) {
	var cmdLines []string
	for _, name := range commandOrder {
		var found *cobra.Command
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = c
				break
			}
		}
		if found == nil {
			continue
		}
		cmdLines = append(cmdLines, fmt.Sprintf("    %-26s %s", found.Use, found.Short))
	}

	fmt.Fprintf(w, `leadsync %s

%s

USAGE:
    leadsync [COMMAND] [OPTIONS]

COMMANDS:
%s

OPTIONS:
    --api-url <url>   Lead API base URL
    --token <token>   API bearer token
    -h, --help        Show help message
`, version.String(), cmd.Short, strings.Join(cmdLines, "\n"))
}
