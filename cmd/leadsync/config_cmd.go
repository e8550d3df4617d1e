package main

import (
	"fmt"
	"strings"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config <init|path|show>",
		Short: "Inspect or create the configuration file",
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write a configuration file with the default values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := config.Path()
				if err := config.WriteSample(path); err != nil {
					return err
				}
				colors.Success("Wrote", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), config.Path())
				return err
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				w := cmd.OutOrStdout()
				for _, key := range config.Keys() {
					value := config.Get(key, "")
					if isSecretKey(key) && value != "" {
						value = "[REDACTED]"
					}
					if _, err := fmt.Fprintf(w, "%s = %s\n", key, value); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)
	return configCmd
}

func isSecretKey(key string) bool {
	return strings.Contains(key, "token") || strings.Contains(key, "secret")
}
