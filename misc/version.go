// Package misc keeps program identity shared by all other packages.
package misc

import (
	"runtime/debug"
)

// Set with -ldflags "-X e2s/misc.version=... -X e2s/misc.gitHash=..." by the build.
var (
	appName = "e2s"
	version = "dev"
	gitHash = ""
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit the binary was built from. When not provided at
// link time it falls back to VCS information recorded by the go tool.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "unknown"
}
