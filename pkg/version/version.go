// Package version carries build identification injected with -ldflags.
package version

import (
	"runtime/debug"
)

// Build metadata. Release builds set these with
// -ldflags "-X github.com/Sumatoshi-tech/modernity/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// shortCommitLen is the length of the abbreviated VCS revision.
const shortCommitLen = 7

// InitBinaryVersion fills unset metadata from the module build info.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "none" && len(s.Value) >= shortCommitLen {
				Commit = s.Value[:shortCommitLen]
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}
