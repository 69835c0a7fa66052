// Package version holds build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at link time: -X github.com/Sumatoshi-tech/relimport/pkg/version.Version=...
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// Resolve fills unset fields from the embedded build info, when available.
func Resolve() (ver, commit, date string) {
	ver, commit, date = Version, Commit, Date

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ver, commit, date
	}

	if ver == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		ver = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "<unknown>" {
				commit = setting.Value
			}
		case "vcs.time":
			if date == "<unknown>" {
				date = setting.Value
			}
		}
	}

	return ver, commit, date
}

// String renders the version line printed by the CLI.
func String() string {
	ver, commit, date := Resolve()

	return fmt.Sprintf("relimport %s (commit %s, built %s)", ver, commit, date)
}
