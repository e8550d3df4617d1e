package errors

import "github.com/cristianoliveira/leadsync/internal/colors"

// consoleOutput prints through the colors package.
type consoleOutput struct{}

func (consoleOutput) Error(msgs ...string)   { colors.Error(msgs...) }
func (consoleOutput) Warning(msgs ...string) { colors.Warning(msgs...) }
func (consoleOutput) Info(msgs ...string)    { colors.Info(msgs...) }
func (consoleOutput) Success(msgs ...string) { colors.Success(msgs...) }

// NewDefaultCLIHandler creates a CLI handler writing to the console.
func NewDefaultCLIHandler() *CLIHandler {
	return NewCLIHandler(consoleOutput{})
}
