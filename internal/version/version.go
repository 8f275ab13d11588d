// Package version reports shutter's build version.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version can be overridden with -ldflags at build time.
	Version = "dev"
	// CommitHash is filled from build info when not set by ldflags.
	CommitHash = ""
	// BuildTime is filled from build info when not set by ldflags.
	BuildTime = ""
)

// GetInfo returns the version with a short commit hash when one is known.
func GetInfo() string {
	if CommitHash == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					CommitHash = setting.Value
				case "vcs.time":
					BuildTime = setting.Value
				}
			}
		}
	}

	res := Version
	if CommitHash != "" {
		short := CommitHash
		if len(short) > 7 {
			short = short[:7]
		}
		res += fmt.Sprintf(" (%s)", short)
	}
	return res
}
