package main

import (
	"os"

	"github.com/cristianoliveira/leadsync/internal/colors"
	"github.com/cristianoliveira/leadsync/internal/config"
	"github.com/cristianoliveira/leadsync/internal/errors"
	"github.com/cristianoliveira/leadsync/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code.
func run(args []string) int {
	config.Load()
	if err := logging.InitGlobal(); err != nil {
		colors.Warning("Logging disabled:", err.Error())
	}
	defer func() { _ = logging.ShutdownGlobal() }()

	log := logging.GetGlobal().With("component", "startup")
	log.Debug("started", "args", args)

	root := NewRootCmd(newApp())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		errors.Handle(errors.NewDefaultCLIHandler(), err)
		log.Error("failed", "error", err)
		return 1
	}
	log.Debug("completed")
	return 0
}
