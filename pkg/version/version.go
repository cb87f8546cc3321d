// Package version reports the build identity of the masonry binary.
package version

import (
	"runtime/debug"
)

// Build metadata, overridden with -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

const (
	revisionSetting = "vcs.revision"
	timeSetting     = "vcs.time"
	shortHashLen    = 12
)

// InitBinaryVersion fills values left unset by -ldflags from the module build
// info embedded by the Go toolchain.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case revisionSetting:
			if Commit == "<unknown>" && setting.Value != "" {
				Commit = setting.Value[:min(len(setting.Value), shortHashLen)]
			}
		case timeSetting:
			if Date == "<unknown>" && setting.Value != "" {
				Date = setting.Value
			}
		}
	}
}
