package logging

import (
	"os"
	"path/filepath"
	"strings"

	clog "github.com/charmbracelet/log"
	"github.com/cristianoliveira/leadsync/internal/config"
)

const (
	filePrefix = "leadsync_"
	fileSuffix = ".log"
)

// Destinations of log output.
const (
	DestinationFile   = "file"
	DestinationStderr = "stderr"
)

// Config holds logging configuration.
type Config struct {
	Enabled bool
	// Level is the minimum level recorded: debug, info, warn or error.
	Level string
	// Format is json (default), logfmt or text.
	Format string
	// Destination is file (a rotated file per process) or stderr, which
	// suits the long-running mock-server.
	Destination string
	MaxFiles    int
	// Command and PID tag every entry and name the log file.
	Command string
	PID     int
}

// DefaultConfig returns a disabled JSON file logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		Destination: DestinationFile,
		MaxFiles:    10,
		Command:     filepath.Base(os.Args[0]),
		PID:         os.Getpid(),
	}
}

// FromGlobalConfig reads the logging_* keys. debug=true forces the debug level.
func FromGlobalConfig() Config {
	cfg := DefaultConfig()
	cfg.Enabled = config.GetBool("logging_enabled", false)
	cfg.Level = config.Get("logging_level", cfg.Level)
	cfg.Format = config.Get("logging_format", cfg.Format)
	cfg.Destination = config.Get("logging_destination", cfg.Destination)
	cfg.MaxFiles = config.GetInt("logging_max_files", cfg.MaxFiles)
	if config.GetBool("debug", false) {
		cfg.Level = "debug"
	}
	return cfg
}

// formatter maps a format name onto a charmbracelet/log formatter.
func formatter(name string) clog.Formatter {
	switch strings.ToLower(name) {
	case "logfmt":
		return clog.LogfmtFormatter
	case "text":
		return clog.TextFormatter
	default:
		return clog.JSONFormatter
	}
}

// LogDir returns {state_dir}/logs when writable, otherwise a directory under
// the system temp dir.
func LogDir() (string, error) {
	if stateDir := config.Get("state_dir", ""); stateDir != "" {
		dir := filepath.Join(stateDir, "logs")
		if err := os.MkdirAll(dir, 0700); err == nil && writable(dir) {
			return dir, nil
		}
	}
	fallback := filepath.Join(os.TempDir(), "leadsync", "logs")
	if err := os.MkdirAll(fallback, 0700); err != nil {
		return "", err
	}
	return fallback, nil
}

func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
