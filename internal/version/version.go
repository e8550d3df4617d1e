// Package version provides build information for leadsync.
package version

import (
	"fmt"
	"runtime"
)

// Version is the release version. Overridden at build time using ldflags.
var Version = "development"

// Commit is the git commit hash. Overridden at build time using ldflags.
var Commit = "unknown"

// Date is the build date. Overridden at build time using ldflags.
var Date = ""

// String returns the version including the commit hash if available.
func String() string {
	if Commit != "unknown" && Commit != "" {
		return Version + "+" + Commit
	}
	return Version
}

// UserAgent is the User-Agent sent to the lead API.
func UserAgent() string {
	return fmt.Sprintf("leadsync/%s (%s/%s)", String(), runtime.GOOS, runtime.GOARCH)
}

// Info returns the multi-line output of `leadsync version`.
func Info() string {
	out := "leadsync " + String() + "\n"
	if Date != "" {
		out += "built " + Date + "\n"
	}
	out += "go " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH + "\n"
	return out
}
