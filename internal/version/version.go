package version

import "fmt"

// Build metadata, overridable at link time, e.g.
// -ldflags "-X github.com/oukeidos/tdocs/internal/version.Version=0.2.0".
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns a multi-line version string for CLI output.
func Info() string {
	return fmt.Sprintf("tdocs %s\ncommit: %s\nbuild: %s", Version, Commit, BuildDate)
}
