// Package version exposes the build identity of the polynote binary.
package version

import "runtime/debug"

// Build identity, overridable at link time.
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the VCS revision the binary was built from.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// InitBinaryVersion fills in build identity from the embedded module build
// info when it was not injected at link time.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && Commit == "unknown" {
			Commit = setting.Value
		}

		if setting.Key == "vcs.time" && Date == "unknown" {
			Date = setting.Value
		}
	}
}
