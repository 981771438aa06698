package version

import (
	"runtime/debug"
	"sync"
)

const modulePath = "github.com/kbukum/anyhttp"

// Set at build time using -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	GoVersion string `json:"go_version"`
	IsDirty   bool   `json:"is_dirty"`
}

var (
	buildOnce sync.Once
	build     *debug.BuildInfo
)

func readBuild() *debug.BuildInfo {
	buildOnce.Do(func() {
		if bi, ok := debug.ReadBuildInfo(); ok {
			build = bi
		}
	})
	return build
}

// Get returns the version information. When Version was not set at link
// time, the module version recorded by the Go toolchain is used.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit}
	bi := readBuild()
	if bi == nil {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Version == "dev" {
		for _, dep := range bi.Deps {
			if dep.Path == modulePath && dep.Version != "" {
				info.Version = dep.Version
			}
		}
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		}
	}
	return info
}

// UserAgent returns product/version, e.g. "anyhttp-nethttp/v1.2.0".
func UserAgent(product string) string {
	return product + "/" + Get().Version
}
