package version

import "fmt"

// These variables are set at build time via ldflags
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("crudgen %s (commit: %s, built: %s)", Version, shortCommit(), BuildTime)
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
