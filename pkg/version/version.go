// Package version exposes build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/Sumatoshi-tech/gitpulse/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

const revisionKey = "vcs.revision"

// InitBinaryVersion fills Commit from the embedded VCS stamp when the binary
// was built without ldflags.
func InitBinaryVersion() {
	if Commit != "<unknown>" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == revisionKey && setting.Value != "" {
			Commit = setting.Value
		}
	}
}

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("gitpulse %s (commit: %s, built: %s)", Version, Commit, Date)
}
