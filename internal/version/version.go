// Package version provides build-time version information.
package version

import "fmt"

// Name is the program family name printed by the tools.
const Name = "wordreader"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String formats the version line shown by -version.
func String(tool string) string {
	return fmt.Sprintf("%s %s %s (commit %s, built %s)", Name, tool, Version, GitCommit, BuildTime)
}
