package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via -ldflags. Revision falls back to VCS metadata
// embedded in the build info.
var (
	Version  = "dev"
	Revision = vcsRevision()
)

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}

	return "unknown"
}

// GetVersionString returns the version with its revision suffix.
func GetVersionString() string {
	return fmt.Sprintf("%s+%s", Version, Revision)
}
