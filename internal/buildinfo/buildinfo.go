// Package buildinfo exposes compile-time metadata. cmd/gitpress copies its ldflags
// values here at startup.
package buildinfo

import "fmt"

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// UserAgent is sent on every GitHub API request.
func UserAgent() string {
	return "gitpress/" + Version
}

// String renders the version line printed by `gitpress version`.
func String() string {
	return fmt.Sprintf("gitpress %s (commit %s, built %s)", Version, Commit, BuildDate)
}
